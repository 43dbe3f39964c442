package acq

import (
	"math"
	"strconv"
	"strings"
)

// Defaults of a freshly started scope.
const (
	DefaultTriggerLevel = 1.0
	DefaultMode         = 0
	DefaultSamples      = 2000
	DefaultFrequency    = 10000
	DefaultScaleX       = 130
	DefaultScaleY       = 0.5

	minScale          = 0.1
	slowFrequency     = 500
	frequencyDivision = 9000
)

// Params holds the parameters configured on the device along with the
// display parameters which only affect presentation.
type Params struct {
	TriggerLevel float64 `yaml:"trigger_level" json:"trigger_level"`
	Mode         byte    `yaml:"mode" json:"mode"`
	Samples      uint32  `yaml:"samples" json:"samples"`
	Frequency    uint32  `yaml:"frequency" json:"frequency"`

	ScaleX    float64 `yaml:"scale_x" json:"scale_x"`
	ScaleY    float64 `yaml:"scale_y" json:"scale_y"`
	PositionX float64 `yaml:"position_x" json:"position_x"`
	PositionY float64 `yaml:"position_y" json:"position_y"`
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		TriggerLevel: DefaultTriggerLevel,
		Mode:         DefaultMode,
		Samples:      DefaultSamples,
		Frequency:    DefaultFrequency,
		ScaleX:       DefaultScaleX,
		ScaleY:       DefaultScaleY,
	}
}

// ScaleBy changes the scale, each component never drops below 0.1.
func (p *Params) ScaleBy(dx, dy float64) {
	p.ScaleX = round(math.Max(p.ScaleX+dx, minScale), 2)
	p.ScaleY = round(math.Max(p.ScaleY+dy, minScale), 2)
}

// MoveBy shifts the graph position.
func (p *Params) MoveBy(dx, dy float64) {
	p.PositionX += dx
	p.PositionY += dy
}

// LevelBy changes the trigger level.
func (p *Params) LevelBy(delta float64) {
	p.TriggerLevel += delta
}

// FrequencyBy changes the sampling frequency, at least 1.
// Steps are ten times finer below 500.
func (p *Params) FrequencyBy(delta int64) {
	if p.Frequency < slowFrequency {
		delta = floorDiv(delta, 10)
	}
	p.Frequency = uint32(clampMin(int64(p.Frequency)+delta, 1))
}

// SamplesBy changes the number of samples, at least 1.
func (p *Params) SamplesBy(delta int64) {
	p.Samples = uint32(clampMin(int64(p.Samples)+delta, 1))
}

// DisplayParams are the parameter strings shown to the user.
type DisplayParams struct {
	TimeScale    string `json:"time_scale"`
	VoltScale    string `json:"volt_scale"`
	Frequency    string `json:"frequency"`
	Samples      string `json:"samples"`
	TriggerLevel string `json:"trigger_level"`
}

// Display formats params for presentation.
func (p Params) Display() DisplayParams {
	freq := float64(p.Frequency)
	if freq == 0 {
		freq = 1
	}
	return DisplayParams{
		TimeScale:    formatFloat(round(p.ScaleX/freq*1000, 1)) + "ms/div",
		VoltScale:    formatFloat(p.ScaleY) + "V/div",
		Frequency:    formatFloat(round(frequencyDivision/freq, 1)) + "kHz",
		Samples:      strconv.FormatUint(uint64(p.Samples), 10),
		TriggerLevel: formatFloat(round(p.TriggerLevel, 2)) + "V",
	}
}

// String implements fmt.Stringer.
func (d DisplayParams) String() string {
	return strings.Join([]string{d.TimeScale, d.VoltScale, d.Frequency, d.Samples, d.TriggerLevel}, " ")
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// formatFloat always keeps one decimal, 13 is shown as "13.0".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clampMin(v, lower int64) int64 {
	if v < lower {
		return lower
	}
	return v
}
