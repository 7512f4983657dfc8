//go:build llama

package engine

import (
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/pkg/errors"
	tiktoken "github.com/weaviate/tiktoken-go"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

// maxTokens bounds a single generation.
const maxTokens = 512

// LlamaBuilt reports whether this binary carries the go-llama.cpp runtime.
func LlamaBuilt() bool { return llamaBuilt }

// llamaEngine adapts go-llama.cpp, whose Predict call runs a whole generation,
// to the step-wise Engine surface. Predict runs on its own goroutine; the
// token callback hands each token over and parks until DecodeStep asks for the
// next one. Returning false from the callback aborts the prediction.
type llamaEngine struct {
	ctxSize int
	threads int
	log     EventLog

	model      *llama.LLama
	modelPath  string
	transcript strings.Builder

	tokens  chan string
	resume  chan bool
	pending string
	has     bool
	stopped bool
	out     strings.Builder

	prefill     PhaseStats
	decode      PhaseStats
	decodeStart time.Time
}

// NewLlama returns an engine backed by go-llama.cpp.
func NewLlama(ctxSize, threads int) Engine {
	return &llamaEngine{ctxSize: ctxSize, threads: threads, stopped: true}
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// countTokens estimates the prompt token count. llama.cpp does not report it
// through the binding, so a BPE encoding stands in for the model tokenizer.
func countTokens(text string) int {
	encOnce.Do(func() {
		enc, _ = tiktoken.GetEncoding("cl100k_base")
	})
	if enc == nil {
		return len(strings.Fields(text))
	}
	return len(enc.Encode(text, nil, nil))
}

func (e *llamaEngine) LoadModel(lib, path, appConfigJSON string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("model path is empty")
	}
	e.UnloadModel()
	m, err := llama.New(path, llama.SetContext(e.ctxSize))
	if err != nil {
		return errors.Wrapf(err, "load %s", lib)
	}
	e.model = m
	e.modelPath = path
	e.log.Record("load_model", fmt.Sprintf("lib=%s path=%s config=%s", lib, path, appConfigJSON))
	return nil
}

func (e *llamaEngine) UnloadModel() {
	if e.model == nil {
		return
	}
	e.abort()
	e.model.Free()
	e.model = nil
	e.transcript.Reset()
	e.log.Record("unload_model", e.modelPath)
}

// go-llama.cpp has no multimodal projector support.
func (e *llamaEngine) LoadVisionAdapter(lib, path string) error {
	return ErrDependencyUnavailable("vision adapters are not supported by go-llama.cpp")
}

func (e *llamaEngine) UnloadVisionAdapter() {}

func (e *llamaEngine) ResetSession() {
	e.abort()
	e.transcript.Reset()
	e.log.Record("reset", "")
}

func (e *llamaEngine) ResetVisionSession() {}

func (e *llamaEngine) Prefill(text string) {
	e.abort()
	e.out.Reset()
	e.decode = PhaseStats{}
	if e.model == nil {
		e.stopped = true
		return
	}
	start := time.Now()
	tokens := make(chan string)
	resume := make(chan bool)
	e.tokens, e.resume = tokens, resume
	e.stopped = false
	e.model.SetTokenCallback(func(tok string) bool {
		tokens <- tok
		return <-resume
	})
	e.transcript.WriteString(text)
	prompt := e.transcript.String()
	opts := []llama.PredictOption{
		llama.SetThreads(max(1, e.threads)),
		llama.SetTokens(maxTokens),
		llama.SetTopP(llama.DefaultOptions.TopP),
		llama.SetTopK(llama.DefaultOptions.TopK),
		llama.SetTemperature(llama.DefaultOptions.Temperature),
		llama.SetPenalty(llama.DefaultOptions.Penalty),
	}
	model := e.model
	go func() {
		defer close(tokens)
		_, _ = model.Predict(prompt, opts...)
	}()
	// The first callback fires once the prompt is evaluated.
	e.pending, e.has = <-tokens
	if !e.has {
		e.finish()
	}
	e.prefill = PhaseStats{Tokens: countTokens(text), Elapsed: time.Since(start)}
	e.decodeStart = time.Now()
	e.log.Record("prefill", fmt.Sprintf("tokens=%d", e.prefill.Tokens))
}

// PrefillImage appends only the markers; image embedding needs a vision adapter.
func (e *llamaEngine) PrefillImage(img image.Image, prefix, suffix string) {
	e.transcript.WriteString(prefix)
	e.transcript.WriteString(suffix)
	e.log.Record("prefill_image", "unsupported")
}

func (e *llamaEngine) DecodeStep() {
	if !e.has {
		e.finish()
		return
	}
	e.out.WriteString(e.pending)
	e.decode.Tokens++
	e.resume <- true
	e.pending, e.has = <-e.tokens
	e.decode.Elapsed = time.Since(e.decodeStart)
	if !e.has {
		e.finish()
	}
	e.log.Record("decode", "")
}

func (e *llamaEngine) finish() {
	if e.stopped {
		return
	}
	e.stopped = true
	e.tokens, e.resume = nil, nil
	e.transcript.WriteString(e.out.String())
}

// abort cancels an in-flight prediction and waits for Predict to return.
func (e *llamaEngine) abort() {
	if e.has {
		tokens, resume := e.tokens, e.resume
		resume <- false
		for range tokens {
			resume <- false
		}
		e.has = false
	}
	e.finish()
}

func (e *llamaEngine) Stopped() bool { return e.stopped }

func (e *llamaEngine) Message() (string, bool) {
	if e.out.Len() == 0 {
		return "", false
	}
	return e.out.String(), true
}

func (e *llamaEngine) RuntimeStatsText(includeVision bool) (string, bool) {
	if e.model == nil {
		return "", false
	}
	var vision *PhaseStats
	if includeVision {
		vision = &PhaseStats{}
	}
	return FormatStats(e.prefill, e.decode, vision), true
}

func (e *llamaEngine) SaveEventLogCSV(path string) error { return e.log.SaveCSV(path) }

func (e *llamaEngine) ClearEventLog() { e.log.Clear() }

func (e *llamaEngine) AvailableResourceBytes() int64 { return AvailableMemoryBytes() }
