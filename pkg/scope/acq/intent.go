package acq

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	fx "github.com/robotalks/scope.go/pkg/framework"
)

// Intent is a user request forwarded to the Controller.
type Intent interface {
	fx.Message
}

// Scale changes time per division (DX) and volts per division (DY).
type Scale struct {
	DX, DY float64
}

// Position shifts the graph.
type Position struct {
	DX, DY float64
}

// TriggerLevel changes the trigger level in volts.
type TriggerLevel struct {
	Delta float64
}

// Frequency changes the sampling frequency.
type Frequency struct {
	Delta int64
}

// Samples changes the number of samples of one acquisition.
type Samples struct {
	Delta int64
}

// TriggerNow requests a single manual acquisition.
type TriggerNow struct{}

// ArmTrigger arms the trigger, acquisition starts when the signal
// crosses the trigger level.
type ArmTrigger struct{}

// TurnOff stops probing.
type TurnOff struct{}

func (m *Scale) NewMessage() fx.Message        { return &Scale{} }
func (m *Position) NewMessage() fx.Message     { return &Position{} }
func (m *TriggerLevel) NewMessage() fx.Message { return &TriggerLevel{} }
func (m *Frequency) NewMessage() fx.Message    { return &Frequency{} }
func (m *Samples) NewMessage() fx.Message      { return &Samples{} }
func (m *TriggerNow) NewMessage() fx.Message   { return &TriggerNow{} }
func (m *ArmTrigger) NewMessage() fx.Message   { return &ArmTrigger{} }
func (m *TurnOff) NewMessage() fx.Message      { return &TurnOff{} }

// ErrUnknownIntent is returned by ParseIntent for unknown names.
var ErrUnknownIntent = errors.New("unknown intent")

// IntentUsage lists the accepted intent names and arguments.
var IntentUsage = map[string]string{
	"trig":    "",
	"arm":     "",
	"off":     "",
	"scale":   "DX DY",
	"pos":     "DX DY",
	"level":   "DELTA",
	"freq":    "DELTA",
	"samples": "DELTA",
}

// ParseIntent creates an Intent from its textual form, e.g.
// "scale 0.1 0" is ParseIntent("scale", "0.1", "0").
func ParseIntent(name string, args ...string) (Intent, error) {
	usage, ok := IntentUsage[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, name)
	}
	if expected := len(strings.Fields(usage)); len(args) != expected {
		return nil, fmt.Errorf("%s: expect %d arguments, got %d", name, expected, len(args))
	}
	switch name {
	case "trig":
		return &TriggerNow{}, nil
	case "arm":
		return &ArmTrigger{}, nil
	case "off":
		return &TurnOff{}, nil
	case "scale", "pos":
		dx, err := parseFloat(name, args[0])
		if err != nil {
			return nil, err
		}
		dy, err := parseFloat(name, args[1])
		if err != nil {
			return nil, err
		}
		if name == "scale" {
			return &Scale{DX: dx, DY: dy}, nil
		}
		return &Position{DX: dx, DY: dy}, nil
	case "level":
		delta, err := parseFloat(name, args[0])
		if err != nil {
			return nil, err
		}
		return &TriggerLevel{Delta: delta}, nil
	}
	delta, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid delta %q: %w", name, args[0], err)
	}
	if name == "freq" {
		return &Frequency{Delta: delta}, nil
	}
	return &Samples{Delta: delta}, nil
}

// ParseIntentLine parses an intent in a single line, e.g. "level -0.1".
func ParseIntentLine(line string) (Intent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrUnknownIntent)
	}
	return ParseIntent(fields[0], fields[1:]...)
}

func parseFloat(name, arg string) (float64, error) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", name, arg, err)
	}
	return v, nil
}
