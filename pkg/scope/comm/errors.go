package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates fewer bytes than expected arrived before the
	// transport read timed out.
	ErrTimeout = errors.New("read timeout")
	// ErrUnknownCommand indicates a frame with an unknown command code.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrFrameSize indicates the frame length doesn't match the command.
	ErrFrameSize = errors.New("frame size mismatch")
)

// FramingError indicates a sample block was received but is malformed.
// The whole block is discarded.
type FramingError struct {
	Count      uint32
	Terminator byte
}

// Error implements error.
func (e *FramingError) Error() string {
	if e.Count > MaxBlockSamples {
		return fmt.Sprintf("sample block too large: %d", e.Count)
	}
	return fmt.Sprintf("bad sample block terminator %#02x after %d samples", e.Terminator, e.Count)
}
