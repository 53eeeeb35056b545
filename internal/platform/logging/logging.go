// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level      string
	Dev        bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a logger writing JSON to stdout (console format in dev) and,
// when File is set, to a size-rotated file as well. The returned closer
// flushes the file sink; it is a no-op without one.
func New(opts Options) (zerolog.Logger, io.Closer) {
	return newWithStdout(opts, os.Stdout)
}

func newWithStdout(opts Options, stdout io.Writer) (zerolog.Logger, io.Closer) {
	var console io.Writer = stdout
	if opts.Dev {
		console = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, lj)
		closer = lj
	}

	var out io.Writer = console
	if len(writers) > 1 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Str("service", "radiology").
		Logger()
	return logger, closer
}

// ParseLevel falls back to info for unknown or empty levels.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
