// Package logx configures the process-wide zerolog logger.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the level and output format.
type Config struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Pretty bool   `envconfig:"PRETTY" default:"false"`
}

// ParseLevel maps a level name to a zerolog level. Unknown names are info.
func ParseLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// New builds a logger writing to w.
func New(w io.Writer, conf Config) zerolog.Logger {
	if conf.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(ParseLevel(conf.Level)).With().Timestamp().Logger()
}

// Init installs a stderr logger as the global logger and returns it.
// Stdout is left for command output.
func Init(conf Config) zerolog.Logger {
	log.Logger = New(os.Stderr, conf)
	zerolog.DefaultContextLogger = &log.Logger
	return log.Logger
}
