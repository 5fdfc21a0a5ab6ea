package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the output format and minimum level of a Logger.
type Config struct {
	Level       string
	Pretty      bool
	ServiceName string
}

// Logger is a thin key/value facade over zerolog so call sites read like
// log/slog: logger.Info("client connected", "connectionID", id).
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing JSON to stdout, or a console format when Pretty is set.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stdout
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	return NewWithWriter(w, cfg)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg Config) *Logger {
	zl := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	if cfg.ServiceName != "" {
		zl = zl.With().Str("service", cfg.ServiceName).Logger()
	}
	return &Logger{zl: zl}
}

// Nop discards everything. Used by tests and as a safe zero value.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{zl: l.zl.With().Fields(keyvals).Logger()}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.zl.Debug().Fields(keyvals).Msg(msg)
}

func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.zl.Info().Fields(keyvals).Msg(msg)
}

func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.zl.Warn().Fields(keyvals).Msg(msg)
}

func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.zl.Error().Fields(keyvals).Msg(msg)
}

// Zerolog exposes the underlying logger for integrations that want it directly.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or fallback when there is none.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return fallback
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
