package comm

import (
	"encoding/binary"
	"io"
)

// Frame is a request: a command code followed by its raw payload.
type Frame struct {
	Command Command
	Payload []byte
}

// NewFrame creates a frame for a command without payload.
func NewFrame(cmd Command) Frame {
	return Frame{Command: cmd}
}

// TriggerLevelFrame creates SET_TRIGGER, the level is sent in millivolts.
func TriggerLevelFrame(volts float64) Frame {
	f := Frame{Command: CmdSetTrigger, Payload: make([]byte, 4)}
	binary.LittleEndian.PutUint32(f.Payload, uint32(MilliVolts(volts)))
	return f
}

// ModeFrame creates SET_MODE.
func ModeFrame(mode byte) Frame {
	return Frame{Command: CmdSetMode, Payload: []byte{mode}}
}

// SamplesFrame creates SET_SAMPLES.
func SamplesFrame(count uint32) Frame {
	return uint32Frame(CmdSetSamples, count)
}

// PrecisionFrame creates SET_PRECISION.
func PrecisionFrame(freq uint32) Frame {
	return uint32Frame(CmdSetPrecision, freq)
}

func uint32Frame(cmd Command, val uint32) Frame {
	f := Frame{Command: cmd, Payload: make([]byte, 4)}
	binary.LittleEndian.PutUint32(f.Payload, val)
	return f
}

// Bytes returns encoded bytes for sending.
func (f Frame) Bytes() []byte {
	b := make([]byte, len(f.Payload)+1)
	b[0] = byte(f.Command)
	copy(b[1:], f.Payload)
	return b
}

// WriteTo implements io.WriterTo, the frame is written with a single Write.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// Byte returns the payload of a PayloadByte frame.
func (f Frame) Byte() byte {
	if len(f.Payload) < 1 {
		return 0
	}
	return f.Payload[0]
}

// Int32 returns the payload of a PayloadInt32 frame.
func (f Frame) Int32() int32 {
	return int32(f.Uint32())
}

// Uint32 returns the payload of a PayloadUint32 frame.
func (f Frame) Uint32() uint32 {
	if len(f.Payload) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(f.Payload)
}

// DecodeFrame parses a complete frame. The length of b must match the
// payload shape of the command exactly.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) == 0 {
		return Frame{}, ErrFrameSize
	}
	cmd := Command(b[0])
	if !cmd.IsValid() {
		return Frame{}, ErrUnknownCommand
	}
	if len(b)-1 != cmd.Shape().Size() {
		return Frame{}, ErrFrameSize
	}
	f := Frame{Command: cmd}
	if len(b) > 1 {
		f.Payload = append([]byte(nil), b[1:]...)
	}
	return f, nil
}
