package logging

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Level orders events by severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level name
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalJSON encodes the level by name
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// ParseLevel converts a level name to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// EventType tags a LogEvent
type EventType int

const (
	EventRequestIssued EventType = iota + 1
	EventResponseReceived
	EventErrorRaised
)

// String returns the event name
func (t EventType) String() string {
	switch t {
	case EventRequestIssued:
		return "request_issued"
	case EventResponseReceived:
		return "response_received"
	case EventErrorRaised:
		return "error_raised"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the event type by name
func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Event is one structured record of a call's progress.
// Headers are already redacted when a sink receives the event.
type Event struct {
	Type       EventType         `json:"type"`
	Level      Level             `json:"level"`
	Timestamp  time.Time         `json:"timestamp"`
	RequestID  string            `json:"requestId,omitempty"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Attempt    int               `json:"attempt,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	StatusCode int               `json:"status,omitempty"`
	Duration   time.Duration     `json:"duration,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	Message    string            `json:"message,omitempty"`
	Err        error             `json:"-"`
}

// Fields flattens the event into key/value pairs for structured loggers
func (e Event) Fields() []interface{} {
	kv := []interface{}{
		"event", e.Type.String(),
		"method", e.Method,
		"path", e.Path,
	}
	if e.RequestID != "" {
		kv = append(kv, "request_id", e.RequestID)
	}
	if e.Attempt > 0 {
		kv = append(kv, "attempt", e.Attempt)
	}
	if e.StatusCode != 0 {
		kv = append(kv, "status", e.StatusCode)
	}
	if e.Duration > 0 {
		kv = append(kv, "duration", e.Duration)
	}
	if e.Kind != "" {
		kv = append(kv, "kind", e.Kind)
	}
	if e.Message != "" {
		kv = append(kv, "error", e.Message)
	}
	if len(e.Headers) > 0 {
		kv = append(kv, "headers", e.Headers)
	}
	return kv
}
