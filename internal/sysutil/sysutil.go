// Package sysutil holds process bootstrap helpers shared by both binaries:
// global log level, logger construction, and small string utilities.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the process logger.
type LogOptions struct {
	Level  string // debug|info|warn|error|fatal|panic
	Pretty bool   // human readable console output
	File   string // optional rotating log file, written in JSON
}

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// SetupLogger builds the process logger, installs it as log.Logger and applies
// the global level. The returned closer flushes the rotating file, if any.
func SetupLogger(opts LogOptions, stdout io.Writer) (zerolog.Logger, io.Closer) {
	if stdout == nil {
		stdout = os.Stdout
	}

	var console io.Writer = stdout
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = nopCloser{}
	out := console
	if strings.TrimSpace(opts.File) != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(console, lj)
		closer = lj
	}

	SetLogLevel(opts.Level)
	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FirstNonEmpty returns the first non-empty string from a variadic list.
// If all values are empty, it returns "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
