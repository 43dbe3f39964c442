package comm

import "fmt"

// Command is the code of a request sent to the scope.
type Command byte

// Commands understood by the firmware.
const (
	CmdSetTrigger   Command = 0
	CmdSetMode      Command = 1
	CmdPing         Command = 2
	CmdSetSamples   Command = 3
	CmdSetPrecision Command = 4
	CmdIsDataAvail  Command = 5
	CmdDownloadData Command = 6
	CmdTurnOff      Command = 7
	CmdTrigMode     Command = 8
	CmdTrigNow      Command = 9
)

// PayloadShape describes the fixed payload following a command code.
type PayloadShape int

// Payload shapes.
const (
	PayloadNone PayloadShape = iota
	PayloadByte
	PayloadInt32
	PayloadUint32
)

// Size returns the number of payload bytes on the wire.
func (s PayloadShape) Size() int {
	switch s {
	case PayloadByte:
		return 1
	case PayloadInt32, PayloadUint32:
		return 4
	}
	return 0
}

var commands = [...]struct {
	name  string
	shape PayloadShape
}{
	CmdSetTrigger:   {"SET_TRIGGER", PayloadInt32},
	CmdSetMode:      {"SET_MODE", PayloadByte},
	CmdPing:         {"PING", PayloadNone},
	CmdSetSamples:   {"SET_SAMPLES", PayloadUint32},
	CmdSetPrecision: {"SET_PRECISION", PayloadUint32},
	CmdIsDataAvail:  {"IS_DATA_AVAIL", PayloadNone},
	CmdDownloadData: {"DOWNLOAD_DATA", PayloadNone},
	CmdTurnOff:      {"TURN_OFF", PayloadNone},
	CmdTrigMode:     {"TRIG_MODE", PayloadNone},
	CmdTrigNow:      {"TRIG_NOW", PayloadNone},
}

// IsValid checks if the code is a known command.
func (c Command) IsValid() bool {
	return int(c) < len(commands)
}

// Shape returns the payload shape of the command.
func (c Command) Shape() PayloadShape {
	if !c.IsValid() {
		return PayloadNone
	}
	return commands[c].shape
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if !c.IsValid() {
		return fmt.Sprintf("CMD(%d)", byte(c))
	}
	return commands[c].name
}
