package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// KeyValueSink writes events through a types.Logger
type KeyValueSink struct {
	Logger types.Logger
}

// Write logs e at its level
func (s KeyValueSink) Write(e Event) {
	if s.Logger == nil {
		return
	}
	msg := "api " + e.Type.String()
	switch e.Level {
	case LevelDebug:
		s.Logger.Debug(msg, e.Fields()...)
	case LevelInfo:
		s.Logger.Info(msg, e.Fields()...)
	case LevelWarn:
		s.Logger.Warn(msg, e.Fields()...)
	default:
		s.Logger.Error(msg, e.Fields()...)
	}
}

// SlogSink writes events to a *slog.Logger
type SlogSink struct {
	Logger *slog.Logger
}

// Write logs e with its timestamp preserved
func (s SlogSink) Write(e Event) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	level := slogLevel(e.Level)
	if !l.Enabled(context.Background(), level) {
		return
	}
	l.Log(context.Background(), level, "api "+e.Type.String(), e.Fields()...)
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// SentrySink records requests and responses as breadcrumbs and reports
// ErrorRaised events as exceptions.
type SentrySink struct {
	// Hub defaults to sentry.CurrentHub()
	Hub *sentry.Hub
}

// Write forwards e to Sentry
func (s SentrySink) Write(e Event) {
	hub := s.Hub
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	if e.Type != EventErrorRaised {
		data := map[string]interface{}{
			"method":     e.Method,
			"url":        e.Path,
			"request_id": e.RequestID,
			"attempt":    e.Attempt,
		}
		if e.StatusCode != 0 {
			data["status_code"] = e.StatusCode
			data["duration_ms"] = e.Duration.Milliseconds()
		}
		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Type:      "http",
			Category:  "api." + e.Type.String(),
			Message:   fmt.Sprintf("%s %s", e.Method, e.Path),
			Data:      data,
			Level:     sentryLevel(e.Level),
			Timestamp: e.Timestamp,
		}, nil)
		return
	}

	err := e.Err
	if err == nil {
		err = errors.New(e.Message)
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("http.method", e.Method)
		scope.SetTag("error.kind", e.Kind)
		if e.StatusCode != 0 {
			scope.SetTag("http.status_code", fmt.Sprintf("%d", e.StatusCode))
		}
		scope.SetContext("api_request", map[string]interface{}{
			"path":       e.Path,
			"request_id": e.RequestID,
			"attempt":    e.Attempt,
			"headers":    e.Headers,
		})
		hub.CaptureException(err)
	})
}

func sentryLevel(l Level) sentry.Level {
	switch l {
	case LevelDebug:
		return sentry.LevelDebug
	case LevelInfo:
		return sentry.LevelInfo
	case LevelWarn:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}
