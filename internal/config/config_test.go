package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 0.001, cfg.Descent.LossThreshold)
	assert.Equal(t, 1000, cfg.Descent.MaxIterations)
	assert.Equal(t, "quadratic", cfg.Descent.DefaultObjective)
	assert.Equal(t, 5, cfg.Descent.DefaultSpeed)
	assert.Equal(t, 100, cfg.Descent.MaxSessions)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_READ_TIMEOUT", "5s")
	t.Setenv("DESCENT_LOSS_THRESHOLD", "0.0005")
	t.Setenv("DESCENT_DEFAULT_OBJECTIVE", "beale")
	t.Setenv("DESCENT_DEFAULT_SPEED", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "info", cfg.Logging.Level, "production defaults to info")
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 0.0005, cfg.Descent.LossThreshold)
	assert.Equal(t, "beale", cfg.Descent.DefaultObjective)
	assert.Equal(t, 9, cfg.Descent.DefaultSpeed)
}

func TestLoadExplicitLogLevel(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparseable port", "HTTP_PORT", "eighty"},
		{"port out of range", "HTTP_PORT", "70000"},
		{"zero threshold", "DESCENT_LOSS_THRESHOLD", "0"},
		{"negative threshold", "DESCENT_LOSS_THRESHOLD", "-1"},
		{"zero budget", "DESCENT_MAX_ITERATIONS", "0"},
		{"speed too high", "DESCENT_DEFAULT_SPEED", "11"},
		{"speed too low", "DESCENT_DEFAULT_SPEED", "0"},
		{"no sessions", "DESCENT_MAX_SESSIONS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateEmptyObjective(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Descent.DefaultObjective = ""
	assert.ErrorContains(t, cfg.Validate(), "DESCENT_DEFAULT_OBJECTIVE")
}
