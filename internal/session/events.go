package session

import "time"

// Event represents a session lifecycle event.
// Minimal and stable: name, time, and optional fields via key/values.
type Event struct {
	Name   string
	Time   time.Time
	Fields map[string]any
}

// EventPublisher receives events from the session. Implementations should be
// lightweight and non-blocking; Publish is called from both the worker and the
// caller context and must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

func (s *Session) publish(name string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	s.pub.Publish(Event{Name: name, Time: time.Now(), Fields: fields})
}
