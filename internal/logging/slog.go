package logging

import (
	"log/slog"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// SlogLogger adapts *slog.Logger to types.Logger
type SlogLogger struct {
	l *slog.Logger
}

var _ types.Logger = (*SlogLogger)(nil)

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(msg string, keysAndValues ...interface{}) {
	s.l.Debug(msg, keysAndValues...)
}

func (s *SlogLogger) Info(msg string, keysAndValues ...interface{}) {
	s.l.Info(msg, keysAndValues...)
}

func (s *SlogLogger) Warn(msg string, keysAndValues ...interface{}) {
	s.l.Warn(msg, keysAndValues...)
}

func (s *SlogLogger) Error(msg string, keysAndValues ...interface{}) {
	s.l.Error(msg, keysAndValues...)
}

// With returns a logger carrying the given attributes
func (s *SlogLogger) With(keysAndValues ...interface{}) *SlogLogger {
	return &SlogLogger{l: s.l.With(keysAndValues...)}
}
