package bench

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"sessiond/internal/engine"
	"sessiond/internal/session"
)

// fakeEngine stops after one decode step and reports fixed token counts.
type fakeEngine struct {
	mu       sync.Mutex
	stats    string
	stopped  bool
	prompt   string
	csvPaths []string
	resets   int
	clears   int
	// onDecode runs after every decode step.
	onDecode func()
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		stopped: true,
		stats:   engine.FormatStats(engine.PhaseStats{Tokens: 3, Elapsed: time.Second}, engine.PhaseStats{Tokens: 5, Elapsed: time.Second}, nil),
	}
}

func (e *fakeEngine) LoadModel(lib, path, appConfigJSON string) error { return nil }
func (e *fakeEngine) UnloadModel()                                    {}
func (e *fakeEngine) LoadVisionAdapter(lib, path string) error        { return nil }
func (e *fakeEngine) UnloadVisionAdapter()                            {}
func (e *fakeEngine) ResetVisionSession()                             {}
func (e *fakeEngine) PrefillImage(image.Image, string, string)        {}
func (e *fakeEngine) AvailableResourceBytes() int64                   { return 1 << 40 }

func (e *fakeEngine) ResetSession() {
	e.mu.Lock()
	e.resets++
	e.mu.Unlock()
}

func (e *fakeEngine) Prefill(text string) {
	e.mu.Lock()
	e.prompt = text
	e.stopped = false
	e.mu.Unlock()
}

func (e *fakeEngine) DecodeStep() {
	e.mu.Lock()
	e.stopped = true
	hook := e.onDecode
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (e *fakeEngine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

func (e *fakeEngine) Message() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return "answer to " + e.prompt, true
}

func (e *fakeEngine) RuntimeStatsText(bool) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats, true
}

func (e *fakeEngine) SaveEventLogCSV(path string) error {
	e.mu.Lock()
	e.csvPaths = append(e.csvPaths, path)
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) ClearEventLog() {
	e.mu.Lock()
	e.clears++
	e.mu.Unlock()
}

// fakeDriver stands in for *session.Automation.
type fakeDriver struct {
	eng         *fakeEngine
	interrupted atomic.Bool
	loadTime    *session.LoadTiming

	mu       sync.Mutex
	messages []string
}

func (d *fakeDriver) Engine() engine.Engine { return d.eng }
func (d *fakeDriver) Interrupted() bool     { return d.interrupted.Load() }
func (d *fakeDriver) ModelName() string     { return "Llama 7B" }
func (d *fakeDriver) UseVision() bool       { return false }

func (d *fakeDriver) AppendMessage(_ session.Role, text string) {
	d.mu.Lock()
	d.messages = append(d.messages, text)
	d.mu.Unlock()
}

func (d *fakeDriver) ModelLoadTime() (session.LoadTiming, bool) {
	if d.loadTime == nil {
		return session.LoadTiming{}, false
	}
	return *d.loadTime, true
}

func (d *fakeDriver) Messages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.messages...)
}

type fakeNotifier struct {
	calls atomic.Int32
	err   error
}

func (n *fakeNotifier) Continue(ctx context.Context) (string, error) {
	n.calls.Add(1)
	if n.err != nil {
		return "", n.err
	}
	return "ok", nil
}

var errControllerDown = errors.New("connection refused")
