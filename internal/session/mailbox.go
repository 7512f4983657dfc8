package session

import (
	"sync"

	"github.com/rs/zerolog"
)

// mailbox is the caller notification context: a goroutine that applies
// closures posted from the worker, in post order. Post never blocks, so the
// worker is never held up by the caller side.
type mailbox struct {
	log zerolog.Logger

	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

func newMailbox(log zerolog.Logger) *mailbox {
	m := &mailbox{
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go m.loop()
	return m
}

// Post schedules fn. Posts after close are dropped.
func (m *mailbox) Post(fn func()) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mailbox) loop() {
	defer close(m.done)
	for {
		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		closed := m.closed
		m.mu.Unlock()
		for _, fn := range batch {
			m.run(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-m.wake
	}
}

func (m *mailbox) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("posted notification panicked")
		}
	}()
	fn()
}

// Close lets already posted closures run, then stops the loop.
func (m *mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
	<-m.done
}
