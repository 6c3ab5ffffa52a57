// Package config loads runtime configuration for the course store CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. COURSES_* environment variables, read with cleanenv.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the API
//	-t int      request timeout (seconds)
//	-r float    request rate limit (requests per second)
//	-l string   log level
//
// # JSON schema
//
// Durations are either strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://localhost:8000",
//	  "request_timeout": "10s",
//	  "rate_limit": 5,
//	  "rate_burst": 2,
//	  "log_level": "debug",
//	  "log_format": "json"
//	}
//
// # Environment
//
//	COURSES_API_URL, COURSES_REQUEST_TIMEOUT, COURSES_RATE_LIMIT,
//	COURSES_RATE_BURST, COURSES_LOG_LEVEL, COURSES_LOG_FORMAT
package config
