// Package logger builds the root zerolog logger for the service.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns the root logger. The level defaults to info and can be
// overridden with CANARY_LOG_LEVEL (trace, debug, info, warn, error).
// The level is read here rather than through config because the logger
// must exist before configuration is parsed.
func New(serviceName string) zerolog.Logger {
	level := zerolog.InfoLevel
	if v := strings.ToLower(os.Getenv("CANARY_LOG_LEVEL")); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	return zerolog.New(os.Stdout).Level(level).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
