// Package logger configures the zerolog global logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup builds a logger at the named level ("debug", "info", ...) and installs it as the global logger.
// Unknown or empty levels fall back to info. dev switches to the console writer with caller and stack info.
func Setup(level string, dev bool) zerolog.Logger {
	return setup(os.Stderr, level, dev)
}

func setup(w io.Writer, level string, dev bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
			Level(lvl).With().Caller().Stack().Logger()
	}
	log.Logger = logger
	return logger
}
