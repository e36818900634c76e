// Package logger provides structured logging for the service.
package logger

import "context"

// Logger is the structured logging contract used throughout the service.
// All methods accept a message followed by key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger whose entries always carry the given
	// key-value pairs.
	With(args ...any) Logger

	// WithContext returns a child logger enriched with the request ID
	// found in ctx, if any.
	WithContext(ctx context.Context) Logger
}
