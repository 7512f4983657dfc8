package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"sessiond/internal/engine"
)

// Session is the chat orchestrator. Request methods run their synchronous part
// on the calling goroutine under mu (the caller context); engine work runs on
// the worker; results come back through the mailbox, which also takes mu.
type Session struct {
	cfg    Config
	log    zerolog.Logger
	pub    EventPublisher
	eng    engine.Engine
	worker *Worker
	box    *mailbox

	state stateRegister

	// mu guards everything below. The worker never takes it.
	mu       sync.Mutex
	messages []Message
	infoText string
	model    Model
	loadTime *LoadTiming
}

// New constructs a Session in the Ready state around eng.
func New(eng engine.Engine, cfg Config) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:    cfg,
		log:    cfg.Logger.With().Str("component", "session").Logger(),
		pub:    cfg.Publisher,
		eng:    eng,
		worker: NewWorker(cfg.WorkerDepth, cfg.Logger),
		box:    newMailbox(cfg.Logger),
	}
	observeState(StateReady)
	return s
}

// Snapshot is a read-only projection of the session.
type Snapshot struct {
	State    State
	Model    Model
	InfoText string
	Messages int
	LoadTime *LoadTiming
}

func (s *Session) State() State { return s.state.Load() }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:    s.state.Load(),
		Model:    s.model,
		InfoText: s.infoText,
		Messages: len(s.messages),
	}
	if s.loadTime != nil {
		lt := *s.loadTime
		snap.LoadTime = &lt
	}
	return snap
}

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// IsCurrentModel reports whether id is the model the session holds or is loading.
func (s *Session) IsCurrentModel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.ID == id
}

// setState stores next and reports the change.
func (s *Session) setState(next State) {
	prev := s.state.Swap(next)
	s.stateChanged(prev, next)
}

// casState moves from old to next only if nothing else changed the state.
func (s *Session) casState(old, next State) bool {
	if !s.state.CompareAndSwap(old, next) {
		return false
	}
	s.stateChanged(old, next)
	return true
}

func (s *Session) stateChanged(prev, next State) {
	observeState(next)
	if prev == next {
		return
	}
	s.log.Debug().Str("from", prev.String()).Str("to", next.String()).Msg("state")
	s.publish("state", map[string]any{"from": prev.String(), "to": next.String()})
}

// submit queues task on the worker. Once the session is closed the task is
// dropped and the state the request moved to stays as it is.
func (s *Session) submit(op string, task func()) bool {
	if s.worker.Submit(task) {
		return true
	}
	workerRejectedTotal.WithLabelValues(op).Inc()
	s.log.Error().Str("op", op).Str("state", s.state.Load().String()).Msg("session closed, task dropped")
	return false
}

// post hands fn to the caller context with mu held.
func (s *Session) post(fn func()) {
	s.box.Post(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn()
	})
}

// Barrier returns once every task submitted before the call has run and the
// notifications those tasks posted have been applied. Follow-up tasks queued
// by those notifications are not covered; see Settle.
func (s *Session) Barrier(ctx context.Context) error {
	done := make(chan struct{})
	if !s.worker.Submit(func() { s.box.Post(func() { close(done) }) }) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settle waits until the session reaches a settled state (ready, failed or
// pending image upload) with no pending work, and returns that state.
func (s *Session) Settle(ctx context.Context) (State, error) {
	for {
		if err := s.Barrier(ctx); err != nil {
			return s.State(), err
		}
		if st := s.State(); st.Settled() {
			// One more round flushes notifications raced in by the last task.
			if err := s.Barrier(ctx); err != nil {
				return st, err
			}
			if st2 := s.State(); st2 == st {
				return st, nil
			}
		}
	}
}

// Close drains the worker and the mailbox. The session must not be used afterwards.
func (s *Session) Close() {
	s.worker.Close()
	s.box.Close()
}
