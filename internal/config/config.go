package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Descent struct {
		LossThreshold    float64 `env:"DESCENT_LOSS_THRESHOLD" envDefault:"0.001"`
		MaxIterations    int     `env:"DESCENT_MAX_ITERATIONS" envDefault:"1000"`
		DefaultObjective string  `env:"DESCENT_DEFAULT_OBJECTIVE" envDefault:"quadratic"`
		DefaultSpeed     int     `env:"DESCENT_DEFAULT_SPEED" envDefault:"5"`
		MaxSessions      int     `env:"DESCENT_MAX_SESSIONS" envDefault:"100"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Verbose logging by default in development
	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the descent engine cannot run with.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be in 1..65535, got %d", c.HTTP.Port)
	}
	if !(c.Descent.LossThreshold > 0) {
		return fmt.Errorf("DESCENT_LOSS_THRESHOLD must be positive, got %v", c.Descent.LossThreshold)
	}
	if c.Descent.MaxIterations < 1 {
		return fmt.Errorf("DESCENT_MAX_ITERATIONS must be at least 1, got %d", c.Descent.MaxIterations)
	}
	if c.Descent.DefaultSpeed < 1 || c.Descent.DefaultSpeed > 10 {
		return fmt.Errorf("DESCENT_DEFAULT_SPEED must be in 1..10, got %d", c.Descent.DefaultSpeed)
	}
	if c.Descent.MaxSessions < 1 {
		return fmt.Errorf("DESCENT_MAX_SESSIONS must be at least 1, got %d", c.Descent.MaxSessions)
	}
	if c.Descent.DefaultObjective == "" {
		return fmt.Errorf("DESCENT_DEFAULT_OBJECTIVE must not be empty")
	}
	return nil
}
