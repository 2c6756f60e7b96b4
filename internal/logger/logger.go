package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ekisa-team/skserve/internal/env"
)

type options struct {
	writer    io.Writer
	level     slog.Level
	logFile   string
	logToFile bool
}

// Option configures the logger.
type Option func(*options)

// WithLogToFile enables an additional rotating file sink.
func WithLogToFile(enabled bool) Option {
	return func(o *options) {
		o.logToFile = enabled
	}
}

// WithLogFile sets the path of the rotating log file.
func WithLogFile(path string) Option {
	return func(o *options) {
		o.logFile = path
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithWriter replaces stderr as the console sink.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// New builds a slog.Logger for the given environment. Development gets a
// colored tint handler, everything else gets JSON so CloudWatch can index it.
func New(environment env.Environment, opts ...Option) *slog.Logger {
	o := &options{
		writer:  os.Stderr,
		level:   slog.LevelInfo,
		logFile: "logs/skserve.log",
	}
	for _, opt := range opts {
		opt(o)
	}

	var handler slog.Handler
	if environment.IsDevelopment() {
		handler = tint.NewHandler(o.writer, &tint.Options{
			Level:      o.level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(o.writer, &slog.HandlerOptions{Level: o.level})
	}

	if o.logToFile && o.logFile != "" {
		file := &lumberjack.Logger{
			Filename:   o.logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		handler = slogmulti.Fanout(
			handler,
			slog.NewJSONHandler(file, &slog.HandlerOptions{Level: o.level}),
		)
	}

	return slog.New(handler).With("env", string(environment))
}

// ParseLevel converts a level name into a slog.Level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
