// Package logging records structured request, response and error events.
//
// A Logger never alters control flow: sink failures and panics are swallowed.
// Header values listed for redaction are replaced before any sink sees them,
// and the Authorization header is always among them.
package logging

import (
	"net/http"
	"sort"
	"time"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// RedactedValue replaces the value of every redacted header
const RedactedValue = "[REDACTED]"

// DefaultRedactHeaders lists the headers redacted when none are configured
var DefaultRedactHeaders = []string{
	types.HeaderAuthorization,
	types.HeaderCookie,
	types.HeaderSetCookie,
}

// Config controls the request logger
type Config struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	Level         Level    `json:"level" yaml:"level"`
	RedactHeaders []string `json:"redactHeaders" yaml:"redact_headers"`
}

// DefaultConfig returns the default logger configuration, which is disabled
func DefaultConfig() *Config {
	return &Config{
		Enabled:       false,
		Level:         LevelInfo,
		RedactHeaders: append([]string(nil), DefaultRedactHeaders...),
	}
}

// Sink consumes events
type Sink interface {
	Write(e Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(e Event)

// Write calls f(e)
func (f SinkFunc) Write(e Event) {
	f(e)
}

// Logger fans events out to sinks. A nil *Logger is valid and does nothing.
type Logger struct {
	level  Level
	redact map[string]struct{}
	sinks  []Sink
	now    func() time.Time
}

// New builds a logger. It returns nil when cfg is nil, disabled, or no sink is given.
func New(cfg *Config, sinks ...Sink) *Logger {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil
	}

	names := cfg.RedactHeaders
	if len(names) == 0 {
		names = DefaultRedactHeaders
	}
	redact := make(map[string]struct{}, len(names)+1)
	redact[http.CanonicalHeaderKey(types.HeaderAuthorization)] = struct{}{}
	for _, name := range names {
		redact[http.CanonicalHeaderKey(name)] = struct{}{}
	}

	return &Logger{
		level:  cfg.Level,
		redact: redact,
		sinks:  active,
		now:    time.Now,
	}
}

// Enabled reports whether events are recorded at all
func (l *Logger) Enabled() bool {
	return l != nil
}

// Log hands e to every sink if its level passes the threshold
func (l *Logger) Log(e Event) {
	if l == nil || e.Level < l.level {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	for _, s := range l.sinks {
		write(s, e)
	}
}

func write(s Sink, e Event) {
	defer func() {
		_ = recover()
	}()
	s.Write(e)
}

// Redact flattens headers, replacing the values of redacted names
func (l *Logger) Redact(h http.Header) map[string]string {
	if l == nil || len(h) == 0 {
		return nil
	}

	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(h))
	for _, k := range keys {
		canonical := http.CanonicalHeaderKey(k)
		if _, ok := l.redact[canonical]; ok {
			out[canonical] = RedactedValue
			continue
		}
		out[canonical] = joinValues(h[k])
	}
	return out
}

func joinValues(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	}
	out := values[0]
	for _, v := range values[1:] {
		out += ", " + v
	}
	return out
}

// RequestIssued records that an attempt is about to be sent
func (l *Logger) RequestIssued(requestID, method, path string, attempt int, headers http.Header) {
	if l == nil {
		return
	}
	l.Log(Event{
		Type:      EventRequestIssued,
		Level:     LevelDebug,
		RequestID: requestID,
		Method:    method,
		Path:      path,
		Attempt:   attempt,
		Headers:   l.Redact(headers),
	})
}

// ResponseReceived records a response. Non-2xx statuses are logged at warn.
func (l *Logger) ResponseReceived(requestID, method, path string, attempt, status int, duration time.Duration, headers http.Header) {
	if l == nil {
		return
	}
	level := LevelInfo
	if status < 200 || status > 299 {
		level = LevelWarn
	}
	l.Log(Event{
		Type:       EventResponseReceived,
		Level:      level,
		RequestID:  requestID,
		Method:     method,
		Path:       path,
		Attempt:    attempt,
		StatusCode: status,
		Duration:   duration,
		Headers:    l.Redact(headers),
	})
}

// ErrorRaised records a failed attempt
func (l *Logger) ErrorRaised(requestID, method, path string, attempt int, duration time.Duration, err error) {
	if l == nil || err == nil {
		return
	}
	l.Log(Event{
		Type:       EventErrorRaised,
		Level:      LevelError,
		RequestID:  requestID,
		Method:     method,
		Path:       path,
		Attempt:    attempt,
		StatusCode: types.StatusCode(err),
		Duration:   duration,
		Kind:       types.KindOf(err).String(),
		Message:    err.Error(),
		Err:        err,
	})
}
