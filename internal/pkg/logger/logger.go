package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Output formats accepted by Config.Format
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config selects the level, the format and the destination of log output
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

var root = zerolog.New(os.Stdout).With().Timestamp().Logger()

// ParseLevel maps a config value onto a zerolog level. Unknown or empty values mean info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Configure replaces the package logger and zerolog's global logger, and returns the new root
func Configure(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(cfg.Format, FormatText) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	root = zerolog.New(out).With().Timestamp().Logger()
	log.Logger = root
	return root
}

func Debug() *zerolog.Event { return root.Debug() }

func Info() *zerolog.Event { return root.Info() }

func Warn() *zerolog.Event { return root.Warn() }

func Error() *zerolog.Event { return root.Error() }
