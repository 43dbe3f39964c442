package acq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/scope.go/pkg/framework"
	"github.com/robotalks/scope.go/pkg/scope/comm"
)

// Gateway is the blocking command interface of the device.
type Gateway interface {
	Ping() comm.Status
	SetTriggerLevel(volts float64) comm.Status
	SetMode(mode byte) comm.Status
	SetNumberOfSamples(count uint32) comm.Status
	SetPrecision(freq uint32) comm.Status
	TriggerNow() comm.Status
	TrigMode() comm.Status
	TurnOff() comm.Status
	IsDataAvailable() bool
	DownloadData() (bool, []comm.Sample)
}

// Sink receives what is presented to the user.
type Sink interface {
	DeliverSamples([]comm.Sample)
	// DeliverStatusMessage shows a message, empty clears it.
	DeliverStatusMessage(string)
}

// Observer is notified about state changes, retries and downloads.
type Observer interface {
	StateChanged(Phase)
	Retried(Phase)
	Downloaded(ok bool, samples int)
}

// Clock provides the timers of the Controller.
type Clock interface {
	After(time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// SystemClock is the real time clock.
var SystemClock Clock = systemClock{}

// Default intervals.
const (
	DefaultPingInterval  = time.Second
	DefaultRetryInterval = 3 * time.Second
	DefaultPollInterval  = 300 * time.Millisecond

	intentQueueSize = 16
)

// ErrRetriesExhausted is returned by Run when MaxRetries is set and a
// bring-up step kept failing.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Controller drives the device through bring-up and acquisition cycles.
type Controller struct {
	Gateway  Gateway
	Sink     Sink
	Clock    Clock
	Observer Observer

	PingInterval  time.Duration
	RetryInterval time.Duration
	PollInterval  time.Duration
	// MaxRetries limits consecutive retries of one bring-up step, 0 is unlimited.
	MaxRetries int

	intentCh chan Intent

	lock    sync.RWMutex
	state   State
	params  Params
	stats   Stats
	samples []comm.Sample
}

// NewController creates a Controller.
func NewController(gw Gateway, sink Sink) *Controller {
	return &Controller{
		Gateway:       gw,
		Sink:          sink,
		Clock:         SystemClock,
		PingInterval:  DefaultPingInterval,
		RetryInterval: DefaultRetryInterval,
		PollInterval:  DefaultPollInterval,
		intentCh:      make(chan Intent, intentQueueSize),
		state:         State{Phase: PhaseConnecting, Since: time.Now()},
		params:        DefaultParams(),
	}
}

// Name implements Named.
func (c *Controller) Name() string {
	return "acquisition"
}

// SetParams replaces the parameters, used before Run.
func (c *Controller) SetParams(p Params) {
	c.lock.Lock()
	c.params = p
	c.lock.Unlock()
}

// Params returns current parameters.
func (c *Controller) Params() Params {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.params
}

// DisplayParams returns current parameters formatted for display.
func (c *Controller) DisplayParams() DisplayParams {
	return c.Params().Display()
}

// State returns current state.
func (c *Controller) State() State {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state
}

// Stats returns retry and download counters.
func (c *Controller) Stats() Stats {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.stats
}

// Samples returns the last downloaded samples.
func (c *Controller) Samples() []comm.Sample {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.samples
}

// Post queues an intent, false if the queue is full.
// Intents posted during bring-up are applied once the device is configured.
func (c *Controller) Post(in Intent) bool {
	select {
	case c.intentCh <- in:
		return true
	default:
		glog.Warningf("intent queue full, dropped %T", in)
		return false
	}
}

// PostMessage implements MessagePoster.
func (c *Controller) PostMessage(msg fx.Message) bool {
	in, ok := msg.(Intent)
	if !ok {
		return false
	}
	return c.Post(in)
}

// Run implements Runnable.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.connect(ctx); err != nil {
		return err
	}
	if err := c.configure(ctx); err != nil {
		return err
	}
	c.Sink.DeliverStatusMessage("")
	c.transition(PhaseIdle)
	glog.Info("device configured")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.State().ExpectingData && c.Gateway.IsDataAvailable() {
			c.download()
			continue
		}
		select {
		case in := <-c.intentCh:
			c.handle(in)
			continue
		default:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-c.intentCh:
			c.handle(in)
		case <-c.Clock.After(c.PollInterval):
		}
	}
}

func (c *Controller) connect(ctx context.Context) error {
	c.transition(PhaseConnecting)
	c.Sink.DeliverStatusMessage(MsgLookingForDevice)
	for retries := 0; ; retries++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Gateway.Ping().OK() {
			glog.Info("device connected")
			return nil
		}
		if err := c.retried(PhaseConnecting, retries, "ping"); err != nil {
			return err
		}
		c.Sink.DeliverStatusMessage(MsgNotResponding)
		if err := c.wait(ctx, c.PingInterval); err != nil {
			return err
		}
	}
}

type configAction struct {
	name string
	run  func(Params) comm.Status
}

func (c *Controller) configActions() []configAction {
	gw := c.Gateway
	return []configAction{
		{ActionTriggerLevel, func(p Params) comm.Status { return gw.SetTriggerLevel(p.TriggerLevel) }},
		{ActionMode, func(p Params) comm.Status { return gw.SetMode(p.Mode) }},
		{ActionSamples, func(p Params) comm.Status { return gw.SetNumberOfSamples(p.Samples) }},
		{ActionFrequency, func(p Params) comm.Status { return gw.SetPrecision(p.Frequency) }},
	}
}

func (c *Controller) configure(ctx context.Context) error {
	c.transition(PhaseConfiguring)
	c.Sink.DeliverStatusMessage(MsgConfiguring)
	for _, action := range c.configActions() {
		c.Sink.DeliverStatusMessage(ConfiguringMsg(action.name, false))
		for retries := 0; ; retries++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			status := action.run(c.Params())
			if status.OK() {
				break
			}
			glog.Warningf("%s: %s", action.name, status)
			if err := c.retried(PhaseConfiguring, retries, action.name); err != nil {
				return err
			}
			if err := c.wait(ctx, c.RetryInterval); err != nil {
				return err
			}
			c.Sink.DeliverStatusMessage(ConfiguringMsg(action.name, true))
		}
	}
	return nil
}

func (c *Controller) handle(in Intent) {
	if c.State().Phase == PhaseError {
		c.Sink.DeliverStatusMessage("")
		c.transition(PhaseIdle)
	}
	gw := c.Gateway
	switch m := in.(type) {
	case *Scale:
		c.updateParams(func(p *Params) { p.ScaleBy(m.DX, m.DY) })
	case *Position:
		c.updateParams(func(p *Params) { p.MoveBy(m.DX, m.DY) })
	case *TriggerLevel:
		p := c.updateParams(func(p *Params) { p.LevelBy(m.Delta) })
		c.check(comm.CmdSetTrigger, gw.SetTriggerLevel(p.TriggerLevel))
	case *Frequency:
		p := c.updateParams(func(p *Params) { p.FrequencyBy(m.Delta) })
		c.check(comm.CmdSetPrecision, gw.SetPrecision(p.Frequency))
	case *Samples:
		prev := c.Params().Samples
		p := c.updateParams(func(p *Params) { p.SamplesBy(m.Delta) })
		if !c.check(comm.CmdSetSamples, gw.SetNumberOfSamples(p.Samples)) {
			c.updateParams(func(p *Params) { p.Samples = prev })
		}
	case *TriggerNow:
		if c.check(comm.CmdTrigNow, gw.TriggerNow()) {
			c.transition(PhaseAwaitingTrigger)
		}
	case *ArmTrigger:
		if c.check(comm.CmdTrigMode, gw.TrigMode()) {
			c.transition(PhaseAwaitingTrigger)
		}
	case *TurnOff:
		// the transport stays open, the device may be power-cycled externally.
		if c.check(comm.CmdTurnOff, gw.TurnOff()) {
			c.transition(PhaseIdle)
		}
	default:
		glog.Warningf("unknown intent %T", in)
	}
}

func (c *Controller) download() {
	ok, samples := c.Gateway.DownloadData()
	c.lock.Lock()
	if ok {
		c.stats.Downloads++
		c.samples = samples
	} else {
		c.stats.DownloadFailures++
	}
	c.lock.Unlock()
	if o := c.Observer; o != nil {
		o.Downloaded(ok, len(samples))
	}
	if !ok {
		glog.Error("downloading samples failed")
		c.transition(PhaseError)
		c.Sink.DeliverStatusMessage(MsgDownloadFailed)
		return
	}
	glog.V(1).Infof("downloaded %d samples", len(samples))
	c.transition(PhaseIdle)
	c.Sink.DeliverSamples(samples)
}

// transition is the only place the state is changed.
func (c *Controller) transition(phase Phase) {
	c.lock.Lock()
	prev := c.state.Phase
	changed := prev != phase
	c.state.Phase = phase
	c.state.ExpectingData = phase == PhaseAwaitingTrigger
	if changed {
		c.state.Since = time.Now()
	}
	c.lock.Unlock()
	if changed {
		glog.V(1).Infof("state %s -> %s", prev, phase)
	}
	if o := c.Observer; o != nil {
		o.StateChanged(phase)
	}
}

func (c *Controller) updateParams(fn func(*Params)) Params {
	c.lock.Lock()
	defer c.lock.Unlock()
	fn(&c.params)
	return c.params
}

func (c *Controller) retried(phase Phase, retries int, step string) error {
	c.lock.Lock()
	if phase == PhaseConnecting {
		c.stats.PingRetries++
	} else {
		c.stats.ConfigRetries++
	}
	c.lock.Unlock()
	if o := c.Observer; o != nil {
		o.Retried(phase)
	}
	if c.MaxRetries > 0 && retries >= c.MaxRetries {
		return fmt.Errorf("%s: %w after %d attempts", step, ErrRetriesExhausted, retries+1)
	}
	return nil
}

func (c *Controller) check(cmd comm.Command, status comm.Status) bool {
	if !status.OK() {
		glog.Warningf("%s: %s", cmd, status)
		return false
	}
	return true
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.Clock.After(d):
		return nil
	}
}
