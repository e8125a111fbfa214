// Package mlog provides the structured logging interface used across the
// service, so call sites never depend on zap directly and can be
// exercised with a no-op logger in tests.
package mlog

import "context"

// Logger is the common interface for log implementations used throughout
// the service.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)

	// WithFields returns a new Logger carrying the given key/value pairs
	// on every subsequent log line.
	WithFields(fields ...any) Logger

	Sync() error
}

type loggerContextKey string

const ctxKey loggerContextKey = "logger"

// ContextWithLogger returns a context carrying the given Logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxKey, logger)
}

// FromContext extracts the Logger previously stored with ContextWithLogger.
// Returns a NoneLogger when absent, so callers never need a nil check.
func FromContext(ctx context.Context) Logger {
	if logger := ctx.Value(ctxKey); logger != nil {
		if l, ok := logger.(Logger); ok {
			return l
		}
	}

	return &NoneLogger{}
}

// NoneLogger discards everything. Used as a safe default when no logger
// has been placed in context, and in tests that don't care about output.
type NoneLogger struct{}

func (l *NoneLogger) Info(args ...any)                  {}
func (l *NoneLogger) Infof(format string, args ...any)  {}
func (l *NoneLogger) Error(args ...any)                 {}
func (l *NoneLogger) Errorf(format string, args ...any) {}
func (l *NoneLogger) Warn(args ...any)                  {}
func (l *NoneLogger) Warnf(format string, args ...any)  {}
func (l *NoneLogger) Debug(args ...any)                 {}
func (l *NoneLogger) Debugf(format string, args ...any) {}
func (l *NoneLogger) Fatal(args ...any)                 {}
func (l *NoneLogger) Fatalf(format string, args ...any) {}

//nolint:ireturn
func (l *NoneLogger) WithFields(fields ...any) Logger { return l }
func (l *NoneLogger) Sync() error                     { return nil }
