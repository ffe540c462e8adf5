// Package logging provides the structured logger used across the gateway,
// with trace IDs carried through request contexts.
package logging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const traceIDKey contextKey = "trace_id"

// Logger wraps zap with the request-oriented helpers the middleware uses.
type Logger struct {
	base    *zap.Logger
	sugar   *zap.SugaredLogger
	service string
}

// New creates a logger for the named service. Level is one of debug, info,
// warn, error (unknown values fall back to info). Format is "json" or
// "console".
func New(service, level, format string) *Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewNop()
	}
	base = base.With(zap.String("service", service))

	return &Logger{base: base, sugar: base.Sugar(), service: service}
}

// NewTraceID generates a fresh trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores a trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext returns the trace ID stored in ctx, or "".
func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

func (l *Logger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// LogRequest emits the per-request access log line.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	l.base.Info("request",
		zap.String("trace_id", TraceIDFromContext(ctx)),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	)
}

// LogSecurityEvent records an auth/rate-limit relevant event.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]any) {
	zfields := make([]zap.Field, 0, len(fields)+2)
	zfields = append(zfields,
		zap.String("trace_id", TraceIDFromContext(ctx)),
		zap.String("event", event),
	)
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}
	l.base.Warn("security_event", zfields...)
}

// Sync flushes buffered log entries. Call on shutdown.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
