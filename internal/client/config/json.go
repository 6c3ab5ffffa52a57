package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/coursestore/internal/flagx"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from a zero value so a partial file only
// overrides what it names.
type JSONConfig struct {
	ServerURL      *string   `json:"server_url"`
	RequestTimeout *Duration `json:"request_timeout"`
	RateLimit      *float64  `json:"rate_limit"`
	RateBurst      *int      `json:"rate_burst"`
	LogLevel       *string   `json:"log_level"`
	LogFormat      *string   `json:"log_format"`
}

// parseJSON overlays cfg with the file named by -c or -config in args. With
// neither flag present it does nothing.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RateLimit != nil {
		cfg.RateLimit = *jc.RateLimit
	}
	if jc.RateBurst != nil {
		cfg.RateBurst = *jc.RateBurst
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.LogFormat != nil {
		cfg.LogFormat = *jc.LogFormat
	}
	return nil
}
