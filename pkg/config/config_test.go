package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
source:
  type: clickhouse
engine:
  window: 12
  architecture:
    - size: 18
    - size: 1
      activation: sigmoid
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 15*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, c.Server.CORSOrigins)
	assert.Equal(t, "1day", c.Source.Interval)
	assert.Equal(t, 15*time.Minute, c.Source.CacheTTL)
	assert.Equal(t, 12, c.Engine.Window)
	assert.Equal(t, 2000, c.Engine.Epochs)
	assert.Equal(t, 0.001, c.Engine.ErrorThreshold)
	assert.Equal(t, "stockbrain.forecasts", c.Kafka.Topics.Forecasts)
	require.Len(t, c.Engine.Architecture, 2)
	assert.Equal(t, "sigmoid", c.Engine.Architecture[1].Activation)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"unknown source":      "environment: test\nsource:\n  type: csv\n",
		"missing api key":     "environment: test\nsource:\n  type: twelvedata\n",
		"missing dsn":         "environment: test\nsource:\n  type: postgres\n",
		"small window":        "environment: test\nsource:\n  type: clickhouse\nengine:\n  window: 1\n",
		"max days":            "environment: test\nsource:\n  type: clickhouse\nforecast:\n  max_days: 31\n",
		"queue without redis": "environment: test\nsource:\n  type: clickhouse\nqueue:\n  enabled: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("TWELVEDATA_API_KEY", "secret")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", c.TwelveData.APIKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	assert.Equal(t, "debug", c.Log.Level)
}
