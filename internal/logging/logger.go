// Package logging configures the global zerolog logger and emits the
// structured startup event for each binary.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure the global logger.
type Options struct {
	// Level is one of debug, info, warn, error (default info).
	Level string
	// File, when set, adds a rotating JSON log file next to the console output.
	File string
	// JSON writes raw JSON lines to stderr instead of the console format.
	// Lambda sets this so CloudWatch receives structured events.
	JSON bool
}

// Init configures the global zerolog logger. The returned closer flushes
// the log file, if any.
func Init(opts Options) io.Closer {
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	var console io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if opts.JSON {
		console = os.Stderr
	}

	if opts.File == "" {
		log.Logger = log.Output(console)
		return nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    15, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.Logger = log.Output(zerolog.MultiLevelWriter(console, file))
	return file
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
