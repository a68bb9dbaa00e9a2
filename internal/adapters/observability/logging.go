package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the process logger tagged with the binary name.
// APP_ENV=dev (or development) writes colored console lines at debug level;
// anything else writes JSON at info level. LOG_LEVEL overrides either.
func NewLogger(env, service string) zerolog.Logger {
	level := zerolog.InfoLevel
	var l zerolog.Logger
	if env == "dev" || env == "development" {
		level = zerolog.DebugLevel
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		l = zerolog.New(os.Stdout)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	return l.Level(level).With().Timestamp().Str("service", service).Logger()
}
