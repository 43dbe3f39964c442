package comm

import (
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// CommandObserver is notified after every completed command.
type CommandObserver interface {
	CommandDone(cmd Command, status Status, elapsed time.Duration)
}

// Flusher discards pending transport data.
type Flusher interface {
	Flush() error
}

// Client provides blocking operations for every scope command.
// Calls are serialized, there is never more than one outstanding request.
type Client struct {
	ReadWriter io.ReadWriter
	Observer   CommandObserver

	lock sync.Mutex
}

// NewClient creates client and wraps the transport.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{ReadWriter: rw}
}

// Do sends a frame and waits for the status reply.
func (c *Client) Do(f Frame) Status {
	c.lock.Lock()
	defer c.lock.Unlock()
	start := time.Now()
	status := c.exchange(f)
	c.observe(f.Command, status, start)
	return status
}

// Ping checks the device is alive.
func (c *Client) Ping() Status {
	return c.Do(NewFrame(CmdPing))
}

// SetTriggerLevel sets the trigger level in volts.
func (c *Client) SetTriggerLevel(volts float64) Status {
	return c.Do(TriggerLevelFrame(volts))
}

// SetMode sets the probing mode.
func (c *Client) SetMode(mode byte) Status {
	return c.Do(ModeFrame(mode))
}

// SetNumberOfSamples sets the number of samples of one acquisition.
func (c *Client) SetNumberOfSamples(count uint32) Status {
	return c.Do(SamplesFrame(count))
}

// SetPrecision sets the sampling frequency, in device units.
func (c *Client) SetPrecision(freq uint32) Status {
	return c.Do(PrecisionFrame(freq))
}

// TriggerNow starts an acquisition immediately.
func (c *Client) TriggerNow() Status {
	return c.Do(NewFrame(CmdTrigNow))
}

// IsDataAvailable asks whether an acquisition finished.
// The firmware replies nonzero when data is ready.
func (c *Client) IsDataAvailable() bool {
	return c.Do(NewFrame(CmdIsDataAvail)) != StatusOK
}

// TurnOff stops probing.
func (c *Client) TurnOff() Status {
	return c.Do(NewFrame(CmdTurnOff))
}

// TrigMode arms the trigger, acquisition starts when the signal crosses
// the trigger level.
func (c *Client) TrigMode() Status {
	return c.Do(NewFrame(CmdTrigMode))
}

// DownloadData retrieves the samples of the finished acquisition.
// A partial or malformed block is never returned.
func (c *Client) DownloadData() (bool, []Sample) {
	c.lock.Lock()
	defer c.lock.Unlock()
	start := time.Now()
	status := c.exchange(NewFrame(CmdDownloadData))
	if !status.OK() {
		c.observe(CmdDownloadData, status, start)
		return false, nil
	}
	samples, err := ReadSampleBlock(c.ReadWriter)
	if err != nil {
		glog.Warningf("%s: %v", CmdDownloadData, err)
		c.resync()
		c.observe(CmdDownloadData, StatusTimeout, start)
		return false, nil
	}
	c.observe(CmdDownloadData, status, start)
	return true, samples
}

func (c *Client) exchange(f Frame) Status {
	if glog.V(2) {
		glog.Infof("SND %s % x", f.Command, f.Payload)
	}
	if _, err := f.WriteTo(c.ReadWriter); err != nil {
		glog.Warningf("%s: write error: %v", f.Command, err)
		return StatusTimeout
	}
	b, err := readFull(c.ReadWriter, 1)
	if err != nil && err != ErrTimeout {
		glog.Warningf("%s: read error: %v", f.Command, err)
	}
	status := DecodeStatus(b)
	if status.IsTimeout() {
		c.resync()
	}
	glog.V(2).Infof("RCV %s %s", f.Command, status)
	return status
}

// resync drops whatever is left in the transport so a late reply
// can't be taken as the reply of the next command.
func (c *Client) resync() {
	if f, ok := c.ReadWriter.(Flusher); ok {
		if err := f.Flush(); err != nil {
			glog.Warningf("flush error: %v", err)
		}
	}
}

func (c *Client) observe(cmd Command, status Status, start time.Time) {
	if o := c.Observer; o != nil {
		o.CommandDone(cmd, status, time.Since(start))
	}
}
