// Package config loads the CLI configuration.
//
// Sources, in descending priority: an explicit --config path, the
// ROOST_CONFIG env var, ./roost.yaml, then environment variables alone.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds everything the CLI needs to reach the backend and keep a
// durable session.
type Config struct {
	BaseURL          string        `yaml:"base_url" env:"ROOST_BASE_URL" env-default:"https://api.roost.example"`
	Timeout          time.Duration `yaml:"timeout" env:"ROOST_TIMEOUT" env-default:"10s"`
	DataDir          string        `yaml:"data_dir" env:"ROOST_DATA_DIR"`
	ValidateInterval time.Duration `yaml:"validate_interval" env:"ROOST_VALIDATE_INTERVAL" env-default:"30s"`
	SingleFlight     bool          `yaml:"single_flight" env:"ROOST_SINGLE_FLIGHT" env-default:"false"`
}

// SessionPath is where the durable credential store lives.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.db")
}

// Load reads the configuration. An empty path falls back to ROOST_CONFIG
// and then ./roost.yaml; if no file exists, env vars and defaults apply.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("ROOST_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("roost.yaml"); err == nil {
			path = "roost.yaml"
		}
	}

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config %q: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("reading config from env: %w", err)
		}
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving data dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".roost")
	}
	return &cfg, nil
}
