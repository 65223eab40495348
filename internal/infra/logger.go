package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so packages depend on the infra contract
// rather than on the logging module directly.
type Logger = zerolog.Logger

// NewLogger builds the service logger. Development gets colored console
// output at debug; everything else gets JSON at info. A non-empty level
// (LOG_LEVEL) overrides either default.
func NewLogger(appEnv, level string) zerolog.Logger {
	dev := appEnv == "development"

	lvl := zerolog.InfoLevel
	if dev {
		lvl = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		lvl = parsed
	}

	var out io.Writer = os.Stdout
	if dev {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "tryon").
		Str("env", appEnv).
		Logger()
}

// DiscardLogger returns a disabled logger for components built without one.
func DiscardLogger() *Logger {
	l := zerolog.New(io.Discard).Level(zerolog.Disabled)
	return &l
}
