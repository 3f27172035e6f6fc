package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)

	assert.Equal(t, "http://localhost:8080", values.APIBaseURL)
	assert.Equal(t, "info", values.LogLevel)
	assert.Equal(t, 100*time.Millisecond, values.DedupWindow)
	assert.Equal(t, 6, values.DefaultCodeLength)
	assert.Zero(t, values.InactivityTimeout)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://short.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEDUP_WINDOW", "250ms")

	values := Config{}
	err := env.Parse(&values)
	require.NoError(t, err)

	assert.Equal(t, "https://short.example.com", values.APIBaseURL)
	assert.Equal(t, "debug", values.LogLevel)
	assert.Equal(t, 250*time.Millisecond, values.DedupWindow)
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	values := Config{}
	applyDefaults(&values, defaultConfig)

	values.LogLevel = "loud"

	assert.Error(t, values.validate())
}

func TestValidateRejectsBadCodeLength(t *testing.T) {
	values := Config{}
	applyDefaults(&values, defaultConfig)

	values.DefaultCodeLength = 2

	assert.Error(t, values.validate())
}

func TestNewWithDisabledFlags(t *testing.T) {
	t.Setenv("PROVIDER_KEY", "anon-key")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "anon-key", cfg.ProviderKey)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}
