package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/coursestore/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the API
//	-t int      request timeout in seconds
//	-r float    requests per second, 0 disables pacing
//	-l string   log level
//
// args is filtered with flagx.FilterArgs so flags owned by other components
// do not fail parsing.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-r", "-l"})

	fs := flag.NewFlagSet("courses", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the API")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.Float64Var(&cfg.RateLimit, "r", cfg.RateLimit, "requests per second, 0 disables pacing")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	timeoutSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			timeoutSet = true
		}
	})
	if timeoutSet {
		cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	}
	return nil
}
