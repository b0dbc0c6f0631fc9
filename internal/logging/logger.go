// Package logging builds the zerolog loggers used across the server.
package logging

import (
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"tinyhttpd/internal/config"
)

// NewLogger creates a zerolog logger writing JSON lines to output. Debug
// enables debug level; otherwise info and above are written.
func NewLogger(debug bool, output io.Writer) zerolog.Logger {
	if output == nil {
		output = os.Stderr
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// New creates the process logger from the logging configuration. When file
// logging is enabled, output goes to a rotating file (and to stderr as well in
// debug mode). The returned closer releases the file and is never nil.
func New(cfg config.LogConfig, debug bool) (zerolog.Logger, io.Closer) {
	if !cfg.LogToFile {
		return NewLogger(debug, os.Stderr), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var output io.Writer = file
	if debug {
		output = io.MultiWriter(file, os.Stderr)
	}
	return NewLogger(debug, output), file
}

// WithComponent returns a child logger tagged with the component name
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
