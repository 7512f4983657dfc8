package session

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// scriptedEngine is an in-memory engine whose decode loop stops after steps
// decode steps. When gate is set, every DecodeStep signals entered and then
// blocks until the test sends on gate.
type scriptedEngine struct {
	mu sync.Mutex

	steps     int
	available int64
	loadErr   error
	visionErr error
	stats     string

	gate    chan struct{}
	entered chan struct{}

	decoded  int
	stopped  bool
	calls    []string
	image    image.Image
	imgAffix [2]string
}

func newScriptedEngine(steps int) *scriptedEngine {
	return &scriptedEngine{steps: steps, stopped: true, stats: `{"prefill":{"total tokens":"1 tok"},"decode":{"total tokens":"1 tok"}}`}
}

// gated makes DecodeStep block until released.
func (e *scriptedEngine) gated() *scriptedEngine {
	e.gate = make(chan struct{})
	e.entered = make(chan struct{}, 16)
	return e
}

func (e *scriptedEngine) record(call string) {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.mu.Unlock()
}

func (e *scriptedEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

func (e *scriptedEngine) count(call string) int {
	n := 0
	for _, c := range e.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (e *scriptedEngine) LoadModel(lib, path, appConfigJSON string) error {
	e.record(fmt.Sprintf("load:%s:%s:%s", lib, path, appConfigJSON))
	return e.loadErr
}
func (e *scriptedEngine) UnloadModel() { e.record("unload") }
func (e *scriptedEngine) LoadVisionAdapter(lib, path string) error {
	e.record(fmt.Sprintf("load_vision:%s:%s", lib, path))
	return e.visionErr
}
func (e *scriptedEngine) UnloadVisionAdapter() { e.record("unload_vision") }
func (e *scriptedEngine) ResetSession()        { e.record("reset") }
func (e *scriptedEngine) ResetVisionSession()  { e.record("reset_vision") }

func (e *scriptedEngine) Prefill(text string) {
	e.record("prefill:" + text)
	e.mu.Lock()
	e.decoded = 0
	e.stopped = e.steps == 0
	e.mu.Unlock()
}

func (e *scriptedEngine) PrefillImage(img image.Image, prefix, suffix string) {
	e.record("prefill_image")
	e.mu.Lock()
	e.image = img
	e.imgAffix = [2]string{prefix, suffix}
	e.mu.Unlock()
}

func (e *scriptedEngine) DecodeStep() {
	if e.gate != nil {
		e.entered <- struct{}{}
		<-e.gate
	}
	e.record("decode")
	e.mu.Lock()
	e.decoded++
	if e.decoded >= e.steps {
		e.stopped = true
	}
	e.mu.Unlock()
}

func (e *scriptedEngine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

func (e *scriptedEngine) Message() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.decoded == 0 {
		return "", false
	}
	return fmt.Sprintf("out-%d", e.decoded), true
}

func (e *scriptedEngine) RuntimeStatsText(includeVision bool) (string, bool) {
	return e.stats, e.stats != ""
}

func (e *scriptedEngine) SaveEventLogCSV(path string) error { e.record("save_csv"); return nil }
func (e *scriptedEngine) ClearEventLog()                    { e.record("clear_log") }

func (e *scriptedEngine) AvailableResourceBytes() int64 {
	if e.available == 0 {
		return math.MaxInt64
	}
	return e.available
}

// newTestSession returns a session around eng that is closed on cleanup.
func newTestSession(t *testing.T, eng *scriptedEngine) (*Session, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	s := New(eng, Config{Logger: zerolog.Nop(), Publisher: pub})
	t.Cleanup(s.Close)
	return s, pub
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func settle(t *testing.T, s *Session) State {
	t.Helper()
	st, err := s.Settle(testCtx(t))
	if err != nil {
		t.Fatalf("Settle: %v (state %s)", err, s.State())
	}
	return st
}

// mustPanicContract runs fn and fails unless it panics with a ContractError.
func mustPanicContract(t *testing.T, fn func()) *ContractError {
	t.Helper()
	var got any
	func() {
		defer func() { got = recover() }()
		fn()
	}()
	ce, ok := got.(*ContractError)
	if !ok {
		t.Fatalf("expected *ContractError panic, got %v", got)
	}
	return ce
}

func loadedSession(t *testing.T, eng *scriptedEngine, m Model) (*Session, *MemoryPublisher) {
	t.Helper()
	s, pub := newTestSession(t, eng)
	s.RequestReload(m)
	settle(t, s)
	return s, pub
}

var textModel = Model{ID: "llama-7b", Lib: "llama-lib", Path: "/models/llama-7b", DisplayName: "Llama 7B", EstimatedBytes: 1 << 20}

var visionModel = Model{ID: "minigpt4", Lib: "minigpt-lib", Path: "/models/minigpt4/params", DisplayName: "minigpt4-7b", EstimatedBytes: 1 << 20}
