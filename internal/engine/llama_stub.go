//go:build !llama

package engine

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in llama.go (tagged 'llama').

import "image"

// llamaBuilt indicates whether this binary was compiled with real llama support.
const llamaBuilt = false

type llamaEngine struct {
	ctxSize int
	threads int
	log     EventLog
}

// NewLlama returns an engine that refuses to load models in this build.
func NewLlama(ctxSize, threads int) Engine {
	return &llamaEngine{ctxSize: ctxSize, threads: threads}
}

func (e *llamaEngine) LoadModel(lib, path, appConfigJSON string) error {
	return ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

func (e *llamaEngine) UnloadModel() {}

func (e *llamaEngine) LoadVisionAdapter(lib, path string) error {
	return ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

func (e *llamaEngine) UnloadVisionAdapter()                                {}
func (e *llamaEngine) ResetSession()                                       {}
func (e *llamaEngine) ResetVisionSession()                                 {}
func (e *llamaEngine) Prefill(text string)                                 {}
func (e *llamaEngine) PrefillImage(img image.Image, prefix, suffix string) {}
func (e *llamaEngine) DecodeStep()                                         {}
func (e *llamaEngine) Stopped() bool                                       { return true }
func (e *llamaEngine) Message() (string, bool)                             { return "", false }

func (e *llamaEngine) RuntimeStatsText(includeVision bool) (string, bool) { return "", false }

func (e *llamaEngine) SaveEventLogCSV(path string) error { return e.log.SaveCSV(path) }
func (e *llamaEngine) ClearEventLog()                    { e.log.Clear() }

func (e *llamaEngine) AvailableResourceBytes() int64 { return AvailableMemoryBytes() }

// LlamaBuilt reports whether this binary carries the go-llama.cpp runtime.
func LlamaBuilt() bool { return llamaBuilt }
