package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/scope.go/pkg/scope/acq"
)

func writeFile(t *testing.T, content string) string {
	fn := filepath.Join(t.TempDir(), "scope.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(content), 0644))
	return fn
}

func TestNewConfigIsCopy(t *testing.T) {
	conf := NewConfig()
	conf.Serial.Baud = 9600
	require.Equal(t, 38400, Default().Serial.Baud)
	require.NoError(t, Default().Validate())
	require.Equal(t, acq.DefaultParams(), conf.Acquisition.Params)
	require.True(t, conf.Console)
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvMetricsAddr, ":9100")
	fn := writeFile(t, `
serial:
  read_timeout: 1s
acquisition:
  retry_interval: 500ms
  max_retries: 5
  params:
    samples: 1000
metrics:
  addr: ":2112"
mqtt:
  url: mqtt://broker:1883/lab/
`)
	conf, err := Load(fn)
	require.NoError(t, err)
	require.Equal(t, 38400, conf.Serial.Baud)
	require.Equal(t, time.Second, conf.Serial.ReadTimeout)
	require.Equal(t, 500*time.Millisecond, conf.Acquisition.RetryInterval)
	require.Equal(t, acq.DefaultPingInterval, conf.Acquisition.PingInterval)
	require.Equal(t, 5, conf.Acquisition.MaxRetries)
	require.EqualValues(t, 1000, conf.Acquisition.Params.Samples)
	require.EqualValues(t, acq.DefaultFrequency, conf.Acquisition.Params.Frequency)
	require.Equal(t, acq.DefaultScaleY, conf.Acquisition.Params.ScaleY)
	require.Equal(t, "mqtt://broker:1883/lab/", conf.MQTT.URL)
	// environment wins over the file.
	require.Equal(t, ":9100", conf.Metrics.Addr)

	sc := conf.SerialConfig("/dev/ttyACM0")
	require.Equal(t, "/dev/ttyACM0", sc.Device)
	require.Equal(t, time.Second, sc.ReadTimeout)

	ctl := conf.NewController(nil, nil)
	require.Equal(t, 5, ctl.MaxRetries)
	require.Equal(t, 500*time.Millisecond, ctl.RetryInterval)
	require.EqualValues(t, 1000, ctl.Params().Samples)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Load(writeFile(t, "serial: [1, 2"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "acquisition:\n  params:\n    samples: 0\n"))
	require.EqualError(t, err, "number of samples must be at least 1")

	_, err = Load(writeFile(t, "acquisition:\n  poll_interval: 0s\n"))
	require.EqualError(t, err, "intervals must be positive")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvMQTTURL, "mqtt://localhost:1883/scope/")
	t.Setenv(EnvID, "bench")
	t.Setenv(EnvConsole, "false")
	conf := NewConfig()
	applyEnv(conf)
	require.Equal(t, "mqtt://localhost:1883/scope/", conf.MQTT.URL)
	require.Equal(t, "bench", conf.ScopeID())
	require.False(t, conf.Console)
}

func TestMachineID(t *testing.T) {
	defer func(fn func() (string, error)) { machineIDFunc = fn }(machineIDFunc)

	machineIDFunc = func() (string, error) { return "0123456789abcdef", nil }
	require.Equal(t, "0123456789ab", MachineID())
	require.Equal(t, "0123456789ab", NewConfig().ScopeID())

	machineIDFunc = func() (string, error) { return "", errors.New("no id") }
	host, err := os.Hostname()
	require.NoError(t, err)
	require.Equal(t, host, MachineID())
}
