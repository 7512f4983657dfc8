// Package engine defines the blocking inference engine surface driven by the
// session worker, plus the concrete engines shipped with sessiond:
//
//   - echo.go: deterministic in-memory engine used by tests and demos.
//   - llama.go: go-llama.cpp backed engine. Enabled with `-tags=llama`.
//   - llama_stub.go: no-CGO stub compiled when the tag is not set.
//   - stats.go: runtime stats text format shared by all engines.
//   - eventlog.go: timestamped engine event log with CSV export.
//   - resources.go: available memory probe used by reload budget checks.
//
// None of the engines are safe for concurrent use. The session calls them
// from a single worker goroutine only.
package engine

import "image"

// Engine is the external inference collaborator. Every call blocks until the
// underlying runtime has finished the operation.
type Engine interface {
	// LoadModel loads the primary model. appConfigJSON may be empty.
	LoadModel(lib, path, appConfigJSON string) error
	UnloadModel()
	// LoadVisionAdapter loads the auxiliary image module on top of the primary model.
	LoadVisionAdapter(lib, path string) error
	UnloadVisionAdapter()

	// ResetSession drops the conversation context of the primary model.
	ResetSession()
	ResetVisionSession()

	Prefill(text string)
	PrefillImage(img image.Image, prefix, suffix string)
	// DecodeStep produces the next chunk of output.
	DecodeStep()
	// Stopped reports whether the current generation has finished.
	Stopped() bool
	// Message returns the output produced so far for the current generation.
	Message() (string, bool)
	// RuntimeStatsText returns the stats blob for the last operation, see FormatStats.
	RuntimeStatsText(includeVision bool) (string, bool)

	SaveEventLogCSV(path string) error
	ClearEventLog()

	// AvailableResourceBytes reports how much memory the process may still use.
	AvailableResourceBytes() int64
}
