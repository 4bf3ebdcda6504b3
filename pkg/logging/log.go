// Package logging sets up the trapflow run log.
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the run logger. Output goes to stderr (pretty-printed when
// attached to a terminal, JSON otherwise) and, when file is non-empty,
// to a size-rotated log file as well.
func New(level string, file string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var console io.Writer = os.Stderr
	if isatty.IsTerminal(os.Stderr.Fd()) {
		console = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	out := console
	if file != "" {
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		out = io.MultiWriter(console, rotated)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Nop returns a disabled logger for tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
