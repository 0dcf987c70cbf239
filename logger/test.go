package logger

import (
	"context"
	"sync"
)

// LogEntry is one entry captured by the test logger.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// TestLogger captures entries in memory for assertions. Loggers derived
// through WithField share the same capture buffer.
type TestLogger struct {
	sink   *entrySink
	fields map[string]interface{}
}

type entrySink struct {
	mu      sync.RWMutex
	entries []LogEntry
}

// NewTestLogger creates an empty test logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{
		sink:   &entrySink{},
		fields: map[string]interface{}{},
	}
}

func (l *TestLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

func (l *TestLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

func (l *TestLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

func (l *TestLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

// WithField returns a logger with the field bound, writing to the same
// capture buffer.
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a logger with the fields bound, writing to the
// same capture buffer.
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{sink: l.sink, fields: merged}
}

func (l *TestLogger) record(level, msg string, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  merged,
	})
}

// Entries returns a copy of all captured entries.
func (l *TestLogger) Entries() []LogEntry {
	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()
	entries := make([]LogEntry, len(l.sink.entries))
	copy(entries, l.sink.entries)
	return entries
}

// HasMessage reports whether any captured entry has the given level and
// message.
func (l *TestLogger) HasMessage(level, msg string) bool {
	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()
	for _, e := range l.sink.entries {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

// Reset drops all captured entries.
func (l *TestLogger) Reset() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = nil
}
