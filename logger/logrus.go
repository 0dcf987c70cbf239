package logger

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

// LogrusLogger implements Logger on top of logrus.
type LogrusLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewLogrusLogger creates a logger writing to stdout. format is "json"
// or "text"; unknown levels fall back to info.
func NewLogrusLogger(level, format string) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if format == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)

	return &LogrusLogger{
		logger: l,
		entry:  logrus.NewEntry(l),
	}
}

func (l *LogrusLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withFields(fields).Debug(msg)
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withFields(fields).Info(msg)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withFields(fields).Warn(msg)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withFields(fields).Error(msg)
}

// WithField returns a logger with the field bound to every entry.
func (l *LogrusLogger) WithField(key string, value interface{}) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.entry.WithField(key, value),
	}
}

// WithFields returns a logger with the fields bound to every entry.
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.entry.WithFields(fields),
	}
}

func (l *LogrusLogger) withFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		return l.entry
	}
	return l.entry.WithFields(fields)
}
