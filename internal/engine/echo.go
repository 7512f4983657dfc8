package engine

import (
	"fmt"
	"image"
	"math"
	"strings"
	"time"
)

// Echo is a deterministic engine that answers every prompt by repeating its
// words, one word per decode step. It needs no model files and is used for
// demos, tests and harness dry runs.
type Echo struct {
	// StepDelay is slept on every decode step to simulate work.
	StepDelay time.Duration
	// AvailableBytes is reported by AvailableResourceBytes; zero means unlimited.
	AvailableBytes int64

	log EventLog

	model  string
	vision string

	pending []string
	out     []string
	active  bool

	prefill PhaseStats
	decode  PhaseStats
	image   PhaseStats
	// tokens fed to the current session, including previous turns
	context int
}

// NewEcho returns an Echo engine with no step delay.
func NewEcho() *Echo { return &Echo{} }

func (e *Echo) LoadModel(lib, path, appConfigJSON string) error {
	e.model = lib
	e.log.Record("load_model", fmt.Sprintf("lib=%s path=%s", lib, path))
	return nil
}

func (e *Echo) UnloadModel() {
	if e.model == "" {
		return
	}
	e.log.Record("unload_model", e.model)
	e.model = ""
	e.ResetSession()
}

func (e *Echo) LoadVisionAdapter(lib, path string) error {
	if e.model == "" {
		return notLoadedError{what: "primary model"}
	}
	e.vision = lib
	e.log.Record("load_vision", fmt.Sprintf("lib=%s path=%s", lib, path))
	return nil
}

func (e *Echo) UnloadVisionAdapter() {
	if e.vision == "" {
		return
	}
	e.log.Record("unload_vision", e.vision)
	e.vision = ""
}

func (e *Echo) ResetSession() {
	e.pending, e.out, e.active = nil, nil, false
	e.context = 0
	e.log.Record("reset", "")
}

func (e *Echo) ResetVisionSession() {
	e.image = PhaseStats{}
	e.log.Record("reset_vision", "")
}

func (e *Echo) Prefill(text string) {
	start := time.Now()
	words := strings.Fields(text)
	e.pending = words
	e.out = nil
	e.active = true
	e.context += len(words)
	e.prefill = PhaseStats{Tokens: len(words), Elapsed: time.Since(start)}
	e.decode = PhaseStats{}
	e.log.Record("prefill", fmt.Sprintf("tokens=%d", len(words)))
}

func (e *Echo) PrefillImage(img image.Image, prefix, suffix string) {
	start := time.Now()
	n := 0
	if img != nil {
		b := img.Bounds()
		n = b.Dx() * b.Dy()
	}
	e.context += n
	e.image = PhaseStats{Tokens: n, Elapsed: time.Since(start)}
	e.log.Record("prefill_image", fmt.Sprintf("%spixels=%d%s", prefix, n, suffix))
}

func (e *Echo) DecodeStep() {
	if len(e.pending) == 0 {
		e.active = false
		return
	}
	start := time.Now()
	if e.StepDelay > 0 {
		time.Sleep(e.StepDelay)
	}
	e.out = append(e.out, e.pending[0])
	e.pending = e.pending[1:]
	e.context++
	e.decode.Tokens++
	e.decode.Elapsed += time.Since(start)
	if len(e.pending) == 0 {
		e.active = false
	}
	e.log.Record("decode", "")
}

func (e *Echo) Stopped() bool { return !e.active }

func (e *Echo) Message() (string, bool) {
	if e.out == nil {
		return "", false
	}
	return strings.Join(e.out, " "), true
}

func (e *Echo) RuntimeStatsText(includeVision bool) (string, bool) {
	var vision *PhaseStats
	if includeVision {
		v := e.image
		vision = &v
	}
	return FormatStats(e.prefill, e.decode, vision), true
}

func (e *Echo) SaveEventLogCSV(path string) error { return e.log.SaveCSV(path) }

func (e *Echo) ClearEventLog() { e.log.Clear() }

func (e *Echo) AvailableResourceBytes() int64 {
	if e.AvailableBytes > 0 {
		return e.AvailableBytes
	}
	return math.MaxInt64
}
