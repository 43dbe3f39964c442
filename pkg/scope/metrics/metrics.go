// Package metrics exports command, retry and download counters of the
// scope with Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/scope.go/pkg/scope/acq"
	"github.com/robotalks/scope.go/pkg/scope/comm"
)

// Collectors implements comm.CommandObserver and acq.Observer.
type Collectors struct {
	Registry *prometheus.Registry

	commands  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	retries   *prometheus.CounterVec
	downloads *prometheus.CounterVec
	samples   prometheus.Counter
	state     *prometheus.GaugeVec
}

// New creates Collectors registered on a private registry.
func New() *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scope_commands_total",
			Help: "Commands sent to the device by status.",
		}, []string{"command", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scope_command_duration_seconds",
			Help:    "Time from sending a command to its reply or timeout.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 3, 5},
		}, []string{"command"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scope_retries_total",
			Help: "Bring-up retries by phase.",
		}, []string{"phase"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scope_downloads_total",
			Help: "Sample downloads by result.",
		}, []string{"result"}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scope_samples_received_total",
			Help: "Samples received from the device.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scope_state",
			Help: "1 for the current acquisition phase.",
		}, []string{"phase"}),
	}
	c.Registry.MustRegister(c.commands, c.durations, c.retries, c.downloads, c.samples, c.state)
	for _, phase := range acq.Phases() {
		c.state.WithLabelValues(phase.String()).Set(0)
	}
	return c
}

func statusLabel(status comm.Status) string {
	if status.IsTimeout() {
		return "timeout"
	}
	return strconv.Itoa(int(status))
}

// CommandDone implements comm.CommandObserver.
func (c *Collectors) CommandDone(cmd comm.Command, status comm.Status, elapsed time.Duration) {
	c.commands.WithLabelValues(cmd.String(), statusLabel(status)).Inc()
	c.durations.WithLabelValues(cmd.String()).Observe(elapsed.Seconds())
}

// StateChanged implements acq.Observer.
func (c *Collectors) StateChanged(phase acq.Phase) {
	for _, p := range acq.Phases() {
		var v float64
		if p == phase {
			v = 1
		}
		c.state.WithLabelValues(p.String()).Set(v)
	}
}

// Retried implements acq.Observer.
func (c *Collectors) Retried(phase acq.Phase) {
	c.retries.WithLabelValues(phase.String()).Inc()
}

// Downloaded implements acq.Observer.
func (c *Collectors) Downloaded(ok bool, samples int) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.downloads.WithLabelValues(result).Inc()
	c.samples.Add(float64(samples))
}

// Handler serves the registry.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics and /health.
type Server struct {
	Addr       string
	Collectors *Collectors
	// Health reports an error when the scope is unhealthy.
	Health func() error
}

// Name implements Named.
func (s *Server) Name() string {
	return "metrics"
}

// Mux returns the HTTP handlers.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Collectors.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if s.Health != nil {
			if err := s.Health(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		glog.Infof("metrics listening on %s", s.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// PhaseHealth reports unhealthy while the device is not connected.
func PhaseHealth(state func() acq.State) func() error {
	return func() error {
		if phase := state().Phase; phase == acq.PhaseConnecting {
			return errors.New("device " + phase.String())
		}
		return nil
	}
}
