package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. Development environments get a console writer;
// everything else writes JSON lines to stdout. An unparsable level falls back to info.
func NewLogger(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
		if env == "dev" || env == "development" {
			lvl = zerolog.DebugLevel
		}
	}
	if env == "dev" || env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Str("service", "help_directory").Logger()
}

// CommandLogger tags every line of a batch command with its name.
func CommandLogger(base zerolog.Logger, command string) zerolog.Logger {
	return base.With().Str("command", command).Logger()
}
