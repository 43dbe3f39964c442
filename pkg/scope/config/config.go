// Package config loads the configuration of the scope from
// defaults, an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/scope.go/pkg/scope/acq"
	"github.com/robotalks/scope.go/pkg/scope/serial"
)

// Environment variables.
const (
	EnvConfigFile  = "SCOPE_CONFIG"
	EnvMQTTURL     = "SCOPE_MQTT_URL"
	EnvID          = "SCOPE_ID"
	EnvMetricsAddr = "SCOPE_METRICS_ADDR"
	EnvConsole     = "SCOPE_CONSOLE"
)

// SerialConfig defines the serial port settings.
type SerialConfig struct {
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// AcquisitionConfig defines the controller cadence and initial params.
type AcquisitionConfig struct {
	PingInterval  time.Duration `yaml:"ping_interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	MaxRetries    int           `yaml:"max_retries"`
	Params        acq.Params    `yaml:"params"`
}

// MQTTConfig enables the MQTT sink when URL is set.
type MQTTConfig struct {
	// URL of the broker, e.g. mqtt://localhost:1883/scope/
	URL string `yaml:"url"`
	// ID is the topic namespace, machine ID if empty.
	ID string `yaml:"id"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Config defines the configurations of the scope.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Console     bool              `yaml:"console"`
}

var (
	defaultConfig = Config{
		Serial: SerialConfig{
			Baud:        serial.DefaultBaud,
			ReadTimeout: serial.DefaultReadTimeout,
		},
		Acquisition: AcquisitionConfig{
			PingInterval:  acq.DefaultPingInterval,
			RetryInterval: acq.DefaultRetryInterval,
			PollInterval:  acq.DefaultPollInterval,
			Params:        acq.DefaultParams(),
		},
		Console: true,
	}

	configFile string
)

func init() {
	configFile = os.Getenv(EnvConfigFile)
	applyEnv(&defaultConfig)
}

func applyEnv(c *Config) {
	if val := os.Getenv(EnvMQTTURL); val != "" {
		c.MQTT.URL = val
	}
	if val := os.Getenv(EnvID); val != "" {
		c.MQTT.ID = val
	}
	if val := os.Getenv(EnvMetricsAddr); val != "" {
		c.Metrics.Addr = val
	}
	if val := os.Getenv(EnvConsole); val != "" {
		if en, err := strconv.ParseBool(val); err == nil {
			c.Console = en
		}
	}
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load reads a YAML file over the defaults, the environment still
// takes precedence.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	conf := NewConfig()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(conf)
	return conf, conf.Validate()
}

// FromEnv loads the file named by SCOPE_CONFIG, or the defaults.
func FromEnv() (*Config, error) {
	if configFile != "" {
		return Load(configFile)
	}
	conf := NewConfig()
	return conf, conf.Validate()
}

// Validate checks the values are usable.
func (c *Config) Validate() error {
	switch {
	case c.Serial.Baud <= 0:
		return fmt.Errorf("invalid baud %d", c.Serial.Baud)
	case c.Serial.ReadTimeout < 0:
		return fmt.Errorf("invalid read timeout %s", c.Serial.ReadTimeout)
	case c.Acquisition.PingInterval <= 0, c.Acquisition.RetryInterval <= 0, c.Acquisition.PollInterval <= 0:
		return fmt.Errorf("intervals must be positive")
	case c.Acquisition.MaxRetries < 0:
		return fmt.Errorf("invalid max retries %d", c.Acquisition.MaxRetries)
	case c.Acquisition.Params.Samples < 1:
		return fmt.Errorf("number of samples must be at least 1")
	case c.Acquisition.Params.Frequency < 1:
		return fmt.Errorf("frequency must be at least 1")
	}
	return nil
}

// SerialConfig returns the port configuration of the device.
func (c *Config) SerialConfig(device string) *serial.Config {
	conf := serial.DefaultConfig(device)
	conf.Baud = c.Serial.Baud
	conf.ReadTimeout = c.Serial.ReadTimeout
	return conf
}

// NewController creates a controller using the config.
func (c *Config) NewController(gw acq.Gateway, sink acq.Sink) *acq.Controller {
	ctl := acq.NewController(gw, sink)
	ctl.PingInterval = c.Acquisition.PingInterval
	ctl.RetryInterval = c.Acquisition.RetryInterval
	ctl.PollInterval = c.Acquisition.PollInterval
	ctl.MaxRetries = c.Acquisition.MaxRetries
	ctl.SetParams(c.Acquisition.Params)
	return ctl
}

// ScopeID returns the configured ID or one derived from the machine.
func (c *Config) ScopeID() string {
	if c.MQTT.ID != "" {
		return c.MQTT.ID
	}
	return MachineID()
}
