// Package serial provides the serial port transport of the scope.
package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// Protocol defaults.
const (
	DefaultBaud        = 38400
	DefaultReadTimeout = 3 * time.Second
)

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g. "/dev/ttyUSB0", "COM3").
	Device string
	Baud   int
	// ReadTimeout bounds every Read, 0 blocks forever.
	ReadTimeout time.Duration
}

// DefaultConfig returns the configuration used by the scope firmware.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}

// ConnectionError indicates the port can't be opened.
type ConnectionError struct {
	Device string
	Err    error
}

// Error implements error.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("open serial port %s: %v", e.Device, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Port is an opened serial port, 8N1 without flow control.
type Port struct {
	port *serial.Port
	conf Config
}

// Open opens the device with the default configuration.
func Open(device string) (*Port, error) {
	return OpenWith(DefaultConfig(device))
}

// OpenWith opens a serial port.
func OpenWith(conf *Config) (*Port, error) {
	if conf == nil {
		return nil, &ConnectionError{Err: fmt.Errorf("config cannot be nil")}
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        conf.Device,
		Baud:        conf.Baud,
		ReadTimeout: conf.ReadTimeout,
		Size:        serial.DefaultSize,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, &ConnectionError{Device: conf.Device, Err: err}
	}
	return &Port{port: port, conf: *conf}, nil
}

// Config returns the configuration of the opened port.
func (p *Port) Config() Config {
	return p.conf
}

// Read returns the bytes received within the read timeout, possibly none.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write returns after all bytes are handed to the device.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Flush discards data received but not read and data written but not
// yet transmitted.
func (p *Port) Flush() error {
	return p.port.Flush()
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return p.port.Close()
}
