// Package logger configures the global zerolog logger shared by all commands.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs pretty console output in development and applies the log level.
// Unknown levels fall back to info.
func Setup(appEnv, level string) zerolog.Level {
	return setup(os.Stdout, appEnv, level)
}

func setup(out io.Writer, appEnv, level string) zerolog.Level {
	if appEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		})
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}

	lvl := zerolog.InfoLevel
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	zerolog.SetGlobalLevel(lvl)

	log.Debug().
		Str("level", lvl.String()).
		Msg("Logger initialized")

	return lvl
}
