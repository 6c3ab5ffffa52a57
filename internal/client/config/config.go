package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for the course store CLI.
//
// Fields:
//   - ServerURL: base URL of the course marketplace API.
//   - RequestTimeout: per-request deadline; 0 means none.
//   - RateLimit, RateBurst: outgoing request pacing; RateLimit 0 disables it.
//   - LogLevel, LogFormat: slog level name and "text" or "json".
type Config struct {
	ServerURL      string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gte=0"`
	RateLimit      float64       `validate:"gte=0"`
	RateBurst      int           `validate:"gte=0"`
	LogLevel       string        `validate:"oneof=debug info warn warning error"`
	LogFormat      string        `validate:"oneof=text json"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8000"
	c.RequestTimeout = 10 * time.Second
	c.RateLimit = 0
	c.RateBurst = 1
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate reports the first set of invalid fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config, then COURSES_* environment variables, then flags. Later
// sources win. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
