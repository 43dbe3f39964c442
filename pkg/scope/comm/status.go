package comm

import (
	"io"
	"os"
	"strconv"
)

// Status is the reply code of a command.
// 0 means success (or data available), anything else is a failure
// reported by the firmware. StatusTimeout never appears on the wire.
type Status int

// Status values.
const (
	StatusOK      Status = 0
	StatusTimeout Status = -1
)

// OK indicates the command succeeded.
func (s Status) OK() bool {
	return s == StatusOK
}

// IsTimeout indicates no reply was received.
func (s Status) IsTimeout() bool {
	return s == StatusTimeout
}

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	}
	return "status " + strconv.Itoa(int(s))
}

// DecodeStatus decodes the status byte, a short read maps to StatusTimeout.
func DecodeStatus(b []byte) Status {
	if len(b) < 1 {
		return StatusTimeout
	}
	return Status(b[0])
}

// readFull reads exactly n bytes unless the reader times out first.
// A Read returning no data is treated as a timeout, this is how serial
// ports with a read timeout behave.
func readFull(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	for got := 0; got < n; {
		m, err := r.Read(buf[got:])
		got += m
		if got >= n {
			break
		}
		if err != nil && err != io.EOF && !os.IsTimeout(err) {
			return buf[:got], err
		}
		if m == 0 {
			return buf[:got], ErrTimeout
		}
	}
	return buf, nil
}
