// Package session coordinates a single conversational inference engine that
// can only service one operation at a time. It is structured into small files
// by concern:
//
//   - state.go: State values and the derived predicates.
//   - register.go: the atomically swapped state register.
//   - plan.go: the interrupt plan (run the epilogue inline or enqueue it).
//   - worker.go: the single FIFO lane on which every engine call runs.
//   - mailbox.go: the caller notification context that applies posted results.
//   - session.go: Session type, constructor, read accessors, Settle/Close.
//   - requests.go: reset/terminate/reload/generate/process-image requests.
//   - automation.go: privileged batch access used by the benchmark harness.
//   - events.go, eventpub_*.go: lifecycle event publishing.
//   - metrics.go: Prometheus instrumentation.
//
// Requests validate their precondition against the current State and panic
// with a *ContractError when it does not hold. Callers are expected to
// consult the predicates (Snapshot) before issuing a request.
//
// Cancellation is cooperative: a running generation polls the state after
// every decode step and stops once it is no longer Generating. Interrupting
// epilogues are queued on the same worker, so they always run after the
// generation they interrupt has drained.
package session
