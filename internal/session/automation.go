package session

import (
	"time"

	"sessiond/internal/engine"
)

// Automation is the privileged handle passed to a batch run. The run already
// holds Generating for its whole duration, so it drives the engine directly
// instead of going through per-request validation. All methods are meant to be
// called from the run body, which executes on the worker.
type Automation struct {
	s         *Session
	modelName string
	useVision bool
	loadTime  *LoadTiming
}

// RequestAutomation switches to Generating and runs run on the worker with
// exclusive engine access. When run returns and the state is still
// Generating, the session goes back to Ready. Requires Chattable.
func (s *Session) RequestAutomation(run func(a *Automation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.state.Transition(State.Chattable, StateGenerating); !ok {
		panic(contractViolation("automation", prev))
	}
	s.stateChanged(StateReady, StateGenerating)
	requestsTotal.WithLabelValues("automation", "").Inc()
	a := &Automation{
		s:         s,
		modelName: s.model.DisplayName,
		useVision: s.model.UseVision,
	}
	if s.loadTime != nil {
		lt := *s.loadTime
		a.loadTime = &lt
	}
	s.submit("automation", func() {
		start := time.Now()
		run(a)
		s.post(func() {
			if s.casState(StateGenerating, StateReady) {
				s.publish("automation_done", map[string]any{"duration": time.Since(start).Seconds()})
			}
		})
	})
}

func (a *Automation) Engine() engine.Engine { return a.s.eng }

// Interrupted reports whether the session left Generating since the run began.
func (a *Automation) Interrupted() bool { return a.s.state.Load() != StateGenerating }

// AppendMessage adds a message to the history from the caller context.
func (a *Automation) AppendMessage(role Role, text string) {
	a.s.post(func() { a.s.appendMessageLocked(role, text) })
}

// ModelName is the display name of the model loaded when the run started.
func (a *Automation) ModelName() string { return a.modelName }

func (a *Automation) UseVision() bool { return a.useVision }

// ModelLoadTime returns the timing of the last successful load, if any.
func (a *Automation) ModelLoadTime() (LoadTiming, bool) {
	if a.loadTime == nil {
		return LoadTiming{}, false
	}
	return *a.loadTime, true
}
