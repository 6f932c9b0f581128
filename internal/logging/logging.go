// Package logging configures zerolog for the consolidator: human-readable
// console output by default, structured JSON when LOG_FORMAT=json.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Level comes from LOG_LEVEL (default info).
func New() zerolog.Logger {
	var writer io.Writer = os.Stderr
	if os.Getenv("LOG_FORMAT") != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	level := parseLevel(os.Getenv("LOG_LEVEL"))
	zerolog.SetGlobalLevel(level)

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		if lvl, err := zerolog.ParseLevel(strings.ToLower(s)); err == nil {
			return lvl
		}
		return zerolog.InfoLevel
	}
}
