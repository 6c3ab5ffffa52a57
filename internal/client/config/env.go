package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig mirrors Config with env tags. It is pre-filled from Config so
// unset variables keep earlier values.
type envConfig struct {
	ServerURL      string        `env:"COURSES_API_URL" env-description:"base URL of the API"`
	RequestTimeout time.Duration `env:"COURSES_REQUEST_TIMEOUT" env-description:"per-request timeout, e.g. 10s"`
	RateLimit      float64       `env:"COURSES_RATE_LIMIT" env-description:"requests per second, 0 disables pacing"`
	RateBurst      int           `env:"COURSES_RATE_BURST" env-description:"request burst size"`
	LogLevel       string        `env:"COURSES_LOG_LEVEL" env-description:"debug, info, warn or error"`
	LogFormat      string        `env:"COURSES_LOG_FORMAT" env-description:"text or json"`
}

func parseEnv(cfg *Config) error {
	ec := envConfig{
		ServerURL:      cfg.ServerURL,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		LogLevel:       cfg.LogLevel,
		LogFormat:      cfg.LogFormat,
	}
	if err := cleanenv.ReadEnv(&ec); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	cfg.ServerURL = ec.ServerURL
	cfg.RequestTimeout = ec.RequestTimeout
	cfg.RateLimit = ec.RateLimit
	cfg.RateBurst = ec.RateBurst
	cfg.LogLevel = ec.LogLevel
	cfg.LogFormat = ec.LogFormat
	return nil
}

// EnvUsage describes the supported environment variables.
func EnvUsage() string {
	desc, err := cleanenv.GetDescription(&envConfig{}, nil)
	if err != nil {
		return ""
	}
	return desc
}
