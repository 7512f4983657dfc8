package engine

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"
)

// LogEvent is one timestamped engine-internal event.
type LogEvent struct {
	Time   time.Time
	Name   string
	Detail string
}

// EventLog records engine events for later export. The zero value is ready to use.
type EventLog struct {
	mu     sync.Mutex
	events []LogEvent
	now    func() time.Time
}

// Record appends an event stamped with the current time.
func (l *EventLog) Record(name, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	l.events = append(l.events, LogEvent{Time: now(), Name: name, Detail: detail})
}

// Events returns a copy of the recorded events.
func (l *EventLog) Events() []LogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Clear drops all recorded events.
func (l *EventLog) Clear() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

// SaveCSV writes the events to path, overwriting any existing file.
// Timestamps are seconds since the epoch.
func (l *EventLog) SaveCSV(path string) error {
	events := l.Events()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "event", "detail"}); err != nil {
		f.Close()
		return err
	}
	for _, e := range events {
		ts := fmt.Sprintf("%.6f", float64(e.Time.UnixNano())/1e9)
		if err := w.Write([]string{ts, e.Name, e.Detail}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
