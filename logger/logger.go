package logger

import "context"

// Logger is the structured logging interface used across the runner.
// Fields may be nil when an entry carries no extra context.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})

	// WithField returns a logger that attaches the field to every entry.
	WithField(key string, value interface{}) Logger

	// WithFields returns a logger that attaches all fields to every entry.
	WithFields(fields map[string]interface{}) Logger
}

// NopLogger discards everything. Useful as a default when a component
// is constructed without a logger.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (NopLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {}
func (NopLogger) Info(ctx context.Context, msg string, fields map[string]interface{})  {}
func (NopLogger) Warn(ctx context.Context, msg string, fields map[string]interface{})  {}
func (NopLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {}
func (n NopLogger) WithField(key string, value interface{}) Logger                     { return n }
func (n NopLogger) WithFields(fields map[string]interface{}) Logger                    { return n }
