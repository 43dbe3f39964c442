// Package sink implements presentation sinks receiving samples and
// status messages from the acquisition controller.
package sink

import (
	"math"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/scope.go/pkg/scope/acq"
	"github.com/robotalks/scope.go/pkg/scope/comm"
)

// Mux delivers to multiple sinks.
type Mux struct {
	lock  sync.RWMutex
	sinks []acq.Sink
}

// NewMux creates a Mux.
func NewMux(sinks ...acq.Sink) *Mux {
	return &Mux{sinks: sinks}
}

// Add adds more sinks.
func (m *Mux) Add(sinks ...acq.Sink) *Mux {
	m.lock.Lock()
	m.sinks = append(m.sinks, sinks...)
	m.lock.Unlock()
	return m
}

// Len returns the number of sinks.
func (m *Mux) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.sinks)
}

// DeliverSamples implements acq.Sink.
func (m *Mux) DeliverSamples(samples []comm.Sample) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for _, s := range m.sinks {
		s.DeliverSamples(samples)
	}
}

// DeliverStatusMessage implements acq.Sink.
func (m *Mux) DeliverStatusMessage(msg string) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for _, s := range m.sinks {
		s.DeliverStatusMessage(msg)
	}
}

// Summary describes a block of samples.
type Summary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// Summarize computes the summary of samples.
func Summarize(samples []comm.Sample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	sum := Summary{Count: len(samples), Min: math.Inf(1), Max: math.Inf(-1)}
	var total float64
	for _, s := range samples {
		sum.Min = math.Min(sum.Min, s.Value)
		sum.Max = math.Max(sum.Max, s.Value)
		total += s.Value
	}
	sum.Mean = total / float64(len(samples))
	return sum
}

// OneLine joins a multi-line status message.
func OneLine(msg string) string {
	var lines []string
	for _, line := range strings.Split(msg, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}

// Log writes status messages and sample summaries to glog.
type Log struct {
	last string
}

// DeliverSamples implements acq.Sink.
func (l *Log) DeliverSamples(samples []comm.Sample) {
	sum := Summarize(samples)
	glog.Infof("samples: count=%d min=%.3fV max=%.3fV mean=%.3fV", sum.Count, sum.Min, sum.Max, sum.Mean)
}

// DeliverStatusMessage implements acq.Sink.
// Repeated messages are only logged with verbosity.
func (l *Log) DeliverStatusMessage(msg string) {
	repeated := msg == l.last
	l.last = msg
	switch {
	case msg == "":
		glog.V(1).Info("status cleared")
	case repeated:
		glog.V(1).Infof("status: %s", OneLine(msg))
	default:
		glog.Infof("status: %s", OneLine(msg))
	}
}
