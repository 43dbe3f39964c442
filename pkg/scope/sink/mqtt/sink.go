package mqtt

import (
	"context"
	"encoding/json"
	"io"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	fx "github.com/robotalks/scope.go/pkg/framework"
	"github.com/robotalks/scope.go/pkg/scope/acq"
	"github.com/robotalks/scope.go/pkg/scope/comm"
)

// Topics under the scope ID.
const (
	TopicSamples = "samples"
	TopicStatus  = "status"
	TopicMeta    = "meta"
	TopicCmd     = "cmd"
)

// Transport is the part of Queue used by Sink.
type Transport interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
	Sub(topic string, handler Handler) *Subscription
}

// Connector connects a Transport.
type Connector interface {
	Connect() paho.Token
}

// ParamsSource provides the display parameters sent with samples.
type ParamsSource interface {
	State() acq.State
	DisplayParams() acq.DisplayParams
}

// Meta is published retained while the scope is online.
type Meta struct {
	ID      string    `json:"id"`
	Device  string    `json:"device"`
	Started time.Time `json:"started"`
}

// SamplesPayload is published to the samples topic.
type SamplesPayload struct {
	Values []float64          `json:"values"`
	Params *acq.DisplayParams `json:"params,omitempty"`
}

// StatusPayload is published to the status topic.
type StatusPayload struct {
	Message string `json:"message"`
	Phase   string `json:"phase,omitempty"`
}

// Sink publishes samples and status messages, and accepts intents from
// the cmd topic, e.g. "scale 0.1 0".
type Sink struct {
	Transport Transport
	Meta      Meta
	Intents   fx.MessagePoster
	Params    ParamsSource
}

// NewSink creates a Sink publishing under the ID.
func NewSink(t Transport, meta Meta) *Sink {
	s := &Sink{Transport: t, Meta: meta}
	if q, ok := t.(*Queue); ok {
		q.OnConnect = func(*Queue) { s.publishMeta() }
	}
	return s
}

// Name implements Named.
func (s *Sink) Name() string {
	return "mqtt"
}

func (s *Sink) topic(name string) string {
	return s.Meta.ID + "/" + name
}

func (s *Sink) publish(name string, v interface{}, retain bool) paho.Token {
	payload, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("encode %s: %v", name, err)
		return &paho.DummyToken{}
	}
	return s.Transport.PubWith(s.topic(name), payload, 0, retain)
}

// DeliverSamples implements acq.Sink.
func (s *Sink) DeliverSamples(samples []comm.Sample) {
	payload := SamplesPayload{Values: make([]float64, len(samples))}
	for n, sample := range samples {
		payload.Values[n] = sample.Value
	}
	if s.Params != nil {
		params := s.Params.DisplayParams()
		payload.Params = &params
	}
	s.publish(TopicSamples, &payload, false)
}

// DeliverStatusMessage implements acq.Sink.
func (s *Sink) DeliverStatusMessage(msg string) {
	payload := StatusPayload{Message: msg}
	if s.Params != nil {
		payload.Phase = s.Params.State().Phase.String()
	}
	s.publish(TopicStatus, &payload, true)
}

func (s *Sink) publishMeta() {
	s.publish(TopicMeta, &s.Meta, true)
}

func (s *Sink) handleCmd(topic string, payload []byte) {
	in, err := acq.ParseIntentLine(string(payload))
	if err != nil {
		glog.Warningf("%s: %v", topic, err)
		return
	}
	if s.Intents == nil || !s.Intents.PostMessage(in) {
		glog.Warningf("%s: intent %T dropped", topic, in)
	}
}

// Run implements Runnable. The retained meta is cleared on exit.
func (s *Sink) Run(ctx context.Context) error {
	if c, ok := s.Transport.(Connector); ok {
		token := c.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			return err
		}
	}
	sub := s.Transport.Sub(s.topic(TopicCmd), s.handleCmd)
	s.publishMeta()
	<-ctx.Done()
	s.Transport.PubWith(s.topic(TopicMeta), nil, 0, true).WaitTimeout(time.Second)
	if sub != nil {
		sub.Close()
	}
	if closer, ok := s.Transport.(io.Closer); ok {
		closer.Close()
	}
	return ctx.Err()
}
