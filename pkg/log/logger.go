package log

import (
	"time"

	"github.com/google/uuid"
)

// Logger receives trace events. Pass nil or NoopLogger to disable tracing.
type Logger interface {
	// Log records an event. Implementations must be thread-safe and must
	// not block: callers log from their serialized workers.
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// SessionLogger stamps every event with one session id and, when missing, a
// timestamp, before passing it on.
type SessionLogger struct {
	id    string
	inner Logger
	now   func() time.Time
}

// NewSessionLogger wraps inner with a freshly generated session id.
func NewSessionLogger(inner Logger) *SessionLogger {
	return NewSessionLoggerWithID(inner, uuid.NewString())
}

// NewSessionLoggerWithID wraps inner with the given session id.
func NewSessionLoggerWithID(inner Logger, id string) *SessionLogger {
	if inner == nil {
		inner = NoopLogger{}
	}
	return &SessionLogger{id: id, inner: inner, now: time.Now}
}

// SessionID returns the stamped session id.
func (l *SessionLogger) SessionID() string {
	return l.id
}

// Log stamps and forwards the event.
func (l *SessionLogger) Log(event Event) {
	if event.SessionID == "" {
		event.SessionID = l.id
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	l.inner.Log(event)
}

var (
	_ Logger = NoopLogger{}
	_ Logger = (*SessionLogger)(nil)
)
