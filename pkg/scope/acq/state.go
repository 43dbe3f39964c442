package acq

import (
	"fmt"
	"time"
)

// Phase is the acquisition phase.
type Phase int

// Phases.
const (
	PhaseConnecting Phase = iota
	PhaseConfiguring
	PhaseIdle
	PhaseAwaitingTrigger
	PhaseError
)

var phaseNames = []string{
	"connecting",
	"configuring",
	"idle",
	"awaiting-trigger",
	"error",
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Phases returns all phases in order.
func Phases() []Phase {
	return []Phase{PhaseConnecting, PhaseConfiguring, PhaseIdle, PhaseAwaitingTrigger, PhaseError}
}

// State is the acquisition state record.
type State struct {
	Phase Phase
	// ExpectingData is set while a trigger is pending on the device.
	ExpectingData bool
	Since         time.Time
}

// Stats counts retries and downloads.
type Stats struct {
	PingRetries      int
	ConfigRetries    int
	Downloads        int
	DownloadFailures int
}

// Status messages delivered to the presentation.
const (
	MsgLookingForDevice = "Looking for device"
	MsgNotResponding    = "Device is not responding to\nPING command\nCheck connection\n\nRetrying..."
	MsgConfiguring      = "Device is connected\n\nSending initial configuration"
	MsgDownloadFailed   = "Downloading samples failed\nCommunication error\noccurred\n\nPress any key"
)

// Configuration action names.
const (
	ActionTriggerLevel = "Setting trigger level"
	ActionMode         = "Setting mode"
	ActionSamples      = "Setting number of samples"
	ActionFrequency    = "Setting frequency"
)

// ConfiguringMsg is the message shown while an action is being sent.
func ConfiguringMsg(action string, retrying bool) string {
	if retrying {
		return MsgConfiguring + "\n\nRetrying: " + action
	}
	return MsgConfiguring + "\n\n" + action
}
