package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/scope.go/pkg/framework"
	"github.com/robotalks/scope.go/pkg/scope/acq"
	"github.com/robotalks/scope.go/pkg/scope/comm"
)

type published struct {
	topic   string
	payload []byte
	retain  bool
}

// fakeTransport routes subscriptions through a Queue without client.
type fakeTransport struct {
	lock  sync.Mutex
	queue Queue
	pubs  []published
}

func (t *fakeTransport) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	t.lock.Lock()
	t.pubs = append(t.pubs, published{topic, payload, retain})
	t.lock.Unlock()
	return &paho.DummyToken{}
}

func (t *fakeTransport) Sub(topic string, handler Handler) *Subscription {
	return t.queue.Sub(topic, handler)
}

func (t *fakeTransport) published() []published {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]published(nil), t.pubs...)
}

type poster struct {
	msgs []fx.Message
}

func (p *poster) PostMessage(msg fx.Message) bool {
	p.msgs = append(p.msgs, msg)
	return true
}

type params struct{}

func (params) State() acq.State { return acq.State{Phase: acq.PhaseIdle} }
func (params) DisplayParams() acq.DisplayParams {
	return acq.DefaultParams().Display()
}

func TestSinkPublishes(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSink(tr, Meta{ID: "bench"})
	s.Params = params{}
	s.DeliverStatusMessage(acq.MsgLookingForDevice)
	s.DeliverSamples([]comm.Sample{{Index: 0, Value: 1}, {Index: 1, Value: 1.5}})

	pubs := tr.published()
	require.Len(t, pubs, 2)
	require.Equal(t, "bench/status", pubs[0].topic)
	require.True(t, pubs[0].retain)
	var status StatusPayload
	require.NoError(t, json.Unmarshal(pubs[0].payload, &status))
	require.Equal(t, StatusPayload{Message: acq.MsgLookingForDevice, Phase: "idle"}, status)

	require.Equal(t, "bench/samples", pubs[1].topic)
	require.False(t, pubs[1].retain)
	var samples SamplesPayload
	require.NoError(t, json.Unmarshal(pubs[1].payload, &samples))
	require.Equal(t, []float64{1, 1.5}, samples.Values)
	require.Equal(t, "13.0ms/div", samples.Params.TimeScale)
}

func TestSinkRun(t *testing.T) {
	tr := &fakeTransport{}
	p := &poster{}
	s := NewSink(tr, Meta{ID: "bench", Device: "/dev/ttyUSB0"})
	s.Intents = p

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	require.Eventually(t, func() bool { return len(tr.published()) > 0 }, time.Second, time.Millisecond)

	tr.queue.deliver("bench/cmd", []byte("samples 100"))
	tr.queue.deliver("bench/cmd", []byte("zoom"))
	tr.queue.deliver("other/cmd", []byte("trig"))
	require.Equal(t, []fx.Message{&acq.Samples{Delta: 100}}, p.msgs)

	cancel()
	require.Equal(t, context.Canceled, <-done)
	pubs := tr.published()
	require.Len(t, pubs, 2)
	require.Equal(t, "bench/meta", pubs[0].topic)
	var meta Meta
	require.NoError(t, json.Unmarshal(pubs[0].payload, &meta))
	require.Equal(t, "/dev/ttyUSB0", meta.Device)
	require.Equal(t, published{"bench/meta", nil, true}, pubs[1])
	require.Empty(t, tr.queue.subs)
}
