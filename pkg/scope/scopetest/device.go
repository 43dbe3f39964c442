// Package scopetest provides an in-memory scope device for tests.
package scopetest

import (
	"bytes"
	"sync"

	"github.com/robotalks/scope.go/pkg/scope/comm"
)

// DeviceState is the probing state of the device.
type DeviceState int

// Device states.
const (
	StateOff DeviceState = iota
	StateWaitingForTrig
	StateWorking
	StateFinished
)

// MaxSamples is the largest sample count the device accepts.
const MaxSamples = 4000

// Device emulates the scope firmware behind an io.ReadWriter.
// Replies are queued on Write and drained by Read, an empty read
// behaves like a serial read timeout.
type Device struct {
	// Waveform produces the raw value of the n-th sample.
	Waveform func(n int) uint16
	// FinishAfter is the number of data polls an acquisition takes.
	FinishAfter int
	// IgnorePings drops the first pings without a reply.
	IgnorePings int
	// CorruptBlock sends a wrong terminator on download.
	CorruptBlock bool

	lock     sync.Mutex
	pinged   bool
	state    DeviceState
	polls    int
	level    int32
	mode     byte
	samples  uint32
	freq     uint32
	in       bytes.Buffer
	out      bytes.Buffer
	received []comm.Command
}

// NewDevice creates a device producing a saw tooth.
func NewDevice() *Device {
	return &Device{
		Waveform: func(n int) uint16 { return uint16(n % 3300) },
		samples:  MaxSamples,
	}
}

// Write implements io.Writer.
func (d *Device) Write(p []byte) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.in.Write(p)
	for d.in.Len() > 0 {
		buf := d.in.Bytes()
		cmd := comm.Command(buf[0])
		if !cmd.IsValid() {
			d.in.Next(1)
			d.out.WriteByte(2)
			continue
		}
		size := 1 + cmd.Shape().Size()
		if len(buf) < size {
			break
		}
		f, err := comm.DecodeFrame(d.in.Next(size))
		if err != nil {
			d.out.WriteByte(2)
			continue
		}
		d.handle(f)
	}
	return len(p), nil
}

// Read implements io.Reader.
func (d *Device) Read(p []byte) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.out.Len() == 0 {
		return 0, nil
	}
	return d.out.Read(p)
}

// Flush discards pending bytes in both directions.
func (d *Device) Flush() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.in.Reset()
	d.out.Reset()
	return nil
}

// State returns the probing state.
func (d *Device) State() DeviceState {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.state
}

// Config returns trigger level (mV), mode, sample count and precision.
func (d *Device) Config() (int32, byte, uint32, uint32) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.level, d.mode, d.samples, d.freq
}

// Received returns the commands handled so far.
func (d *Device) Received() []comm.Command {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]comm.Command(nil), d.received...)
}

func (d *Device) handle(f comm.Frame) {
	if f.Command == comm.CmdPing {
		if d.IgnorePings > 0 {
			d.IgnorePings--
			return
		}
		d.pinged = true
	}
	if !d.pinged {
		return
	}
	d.received = append(d.received, f.Command)
	switch f.Command {
	case comm.CmdPing:
		d.ack(0)
	case comm.CmdSetTrigger:
		d.set(func() byte {
			if f.Int32() < 0 {
				return 1
			}
			d.level = f.Int32()
			return 0
		})
	case comm.CmdSetMode:
		d.set(func() byte { d.mode = f.Byte(); return 0 })
	case comm.CmdSetSamples:
		d.set(func() byte {
			if f.Uint32() > MaxSamples {
				return 1
			}
			d.samples = f.Uint32()
			return 0
		})
	case comm.CmdSetPrecision:
		d.set(func() byte { d.freq = f.Uint32(); return 0 })
	case comm.CmdTrigNow:
		d.start(StateWorking)
	case comm.CmdTrigMode:
		d.start(StateWaitingForTrig)
	case comm.CmdTurnOff:
		d.state = StateOff
		d.ack(0)
	case comm.CmdIsDataAvail:
		d.poll()
		if d.state == StateFinished {
			d.ack(1)
		} else {
			d.ack(0)
		}
	case comm.CmdDownloadData:
		switch d.state {
		case StateFinished:
			d.ack(0)
			d.sendBlock()
		case StateWorking:
			d.ack(2)
		default:
			d.ack(1)
		}
	}
}

func (d *Device) ack(status byte) {
	d.out.WriteByte(status)
}

func (d *Device) set(fn func() byte) {
	if d.state == StateWorking {
		d.ack(2)
		return
	}
	d.ack(fn())
}

func (d *Device) start(state DeviceState) {
	if d.state == StateWorking {
		d.ack(2)
		return
	}
	d.state, d.polls = state, 0
	d.ack(0)
}

func (d *Device) poll() {
	if d.state != StateWorking && d.state != StateWaitingForTrig {
		return
	}
	if d.polls++; d.polls >= d.FinishAfter {
		d.state = StateFinished
	}
}

func (d *Device) sendBlock() {
	raw := make([]uint16, d.samples)
	for n := range raw {
		raw[n] = d.Waveform(n)
	}
	block := comm.EncodeSampleBlock(raw)
	if d.CorruptBlock {
		block[len(block)-1] = 0
	}
	d.out.Write(block)
}
