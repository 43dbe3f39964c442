package scopetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/scope.go/pkg/scope/acq"
	"github.com/robotalks/scope.go/pkg/scope/comm"
)

type sink struct {
	lock     sync.Mutex
	messages []string
	samples  []comm.Sample
	onMsg    func(string)
	onData   func()
}

func (s *sink) DeliverSamples(samples []comm.Sample) {
	s.lock.Lock()
	s.samples = samples
	s.lock.Unlock()
	if s.onData != nil {
		s.onData()
	}
}

func (s *sink) DeliverStatusMessage(msg string) {
	s.lock.Lock()
	s.messages = append(s.messages, msg)
	s.lock.Unlock()
	if s.onMsg != nil {
		s.onMsg(msg)
	}
}

func newController(dev *Device, out acq.Sink) *acq.Controller {
	ctl := acq.NewController(comm.NewClient(dev), out)
	ctl.PingInterval = time.Millisecond
	ctl.RetryInterval = time.Millisecond
	ctl.PollInterval = time.Millisecond
	return ctl
}

func TestDeviceIgnoresCommandsBeforePing(t *testing.T) {
	dev := NewDevice()
	c := comm.NewClient(dev)
	require.Equal(t, comm.StatusTimeout, c.SetMode(1))
	require.Equal(t, comm.StatusOK, c.Ping())
	require.Equal(t, comm.StatusOK, c.SetMode(1))
	require.Equal(t, []comm.Command{comm.CmdPing, comm.CmdSetMode}, dev.Received())
}

func TestDeviceCommandStatuses(t *testing.T) {
	dev := NewDevice()
	dev.FinishAfter = 1
	c := comm.NewClient(dev)
	require.True(t, c.Ping().OK())
	require.Equal(t, comm.Status(1), c.SetTriggerLevel(-0.5))
	require.Equal(t, comm.Status(1), c.SetNumberOfSamples(MaxSamples+1))
	require.True(t, c.SetTriggerLevel(1.234).OK())
	require.True(t, c.SetNumberOfSamples(3).OK())
	require.True(t, c.SetPrecision(20000).OK())
	level, _, samples, freq := dev.Config()
	require.EqualValues(t, 1234, level)
	require.EqualValues(t, 3, samples)
	require.EqualValues(t, 20000, freq)

	ok, _ := c.DownloadData()
	require.False(t, ok)
	require.True(t, c.TriggerNow().OK())
	require.Equal(t, comm.Status(2), c.TriggerNow())
	require.Equal(t, comm.Status(2), c.SetMode(1))
	require.True(t, c.IsDataAvailable())
	require.Equal(t, StateFinished, dev.State())

	ok, samples3 := c.DownloadData()
	require.True(t, ok)
	require.Equal(t, []comm.Sample{{Index: 0, Value: 0}, {Index: 1, Value: 0.001}, {Index: 2, Value: 0.002}}, samples3)
	require.True(t, c.TurnOff().OK())
	require.Equal(t, StateOff, dev.State())
}

func TestDeviceInvalidCommand(t *testing.T) {
	dev := NewDevice()
	_, err := dev.Write([]byte{0x42})
	require.NoError(t, err)
	b := make([]byte, 4)
	n, err := dev.Read(b)
	require.NoError(t, err)
	require.Equal(t, []byte{2}, b[:n])
}

func TestAcquisitionWithDevice(t *testing.T) {
	dev := NewDevice()
	dev.FinishAfter = 3
	dev.IgnorePings = 2
	dev.Waveform = func(n int) uint16 { return 3300 }

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out := &sink{onData: cancel}
	ctl := newController(dev, out)
	ctl.Post(&acq.TriggerNow{})
	err := ctl.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled), "unexpected error %v", err)

	require.Len(t, out.samples, acq.DefaultSamples)
	for n, s := range out.samples {
		require.Equal(t, n, s.Index)
		require.Equal(t, 3.3, s.Value)
	}
	require.Equal(t, 2, ctl.Stats().PingRetries)
	require.Zero(t, ctl.Stats().ConfigRetries)
	require.Equal(t, acq.PhaseIdle, ctl.State().Phase)
	level, mode, samples, freq := dev.Config()
	require.EqualValues(t, 1000, level)
	require.EqualValues(t, 0, mode)
	require.EqualValues(t, acq.DefaultSamples, samples)
	require.EqualValues(t, acq.DefaultFrequency, freq)
}

func TestAcquisitionCorruptBlock(t *testing.T) {
	dev := NewDevice()
	dev.CorruptBlock = true

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out := &sink{onMsg: func(msg string) {
		if msg == acq.MsgDownloadFailed {
			cancel()
		}
	}}
	ctl := newController(dev, out)
	ctl.Post(&acq.ArmTrigger{})
	err := ctl.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled), "unexpected error %v", err)
	require.Empty(t, out.samples)
	require.Equal(t, acq.PhaseError, ctl.State().Phase)
	require.False(t, ctl.State().ExpectingData)
}

func TestAcquisitionRejectedSamples(t *testing.T) {
	dev := NewDevice()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out := &sink{}
	ctl := newController(dev, out)
	ctl.Post(&acq.Samples{Delta: 2100})
	ctl.Post(&acq.Samples{Delta: -1000})
	done := make(chan error, 1)
	go func() { done <- ctl.Run(ctx) }()
	require.Eventually(t, func() bool {
		_, _, samples, _ := dev.Config()
		return samples == 1000
	}, 5*time.Second, time.Millisecond)
	cancel()
	require.True(t, errors.Is(<-done, context.Canceled))
	require.EqualValues(t, 1000, ctl.Params().Samples)
}
