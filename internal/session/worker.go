package session

import (
	"sync"

	"github.com/rs/zerolog"
)

// Worker is a single lane of execution. Tasks run one at a time, in
// submission order, on a goroutine owned by the Worker: if A is submitted
// before B, A completes before B begins.
type Worker struct {
	tasks chan func()
	log   zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewWorker starts a worker whose queue holds up to depth pending tasks.
func NewWorker(depth int, log zerolog.Logger) *Worker {
	if depth <= 0 {
		depth = defaultWorkerDepth
	}
	w := &Worker{
		tasks: make(chan func(), depth),
		log:   log,
		done:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer close(w.done)
	for task := range w.tasks {
		workerQueueDepth.Set(float64(len(w.tasks)))
		w.run(task)
	}
}

// run isolates task panics so one bad task does not kill the lane.
func (w *Worker) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			workerPanicsTotal.Inc()
			w.log.Error().Interface("panic", r).Msg("worker task panicked")
		}
	}()
	task()
}

// Submit enqueues task. It returns false if the worker has been closed.
func (w *Worker) Submit(task func()) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	w.tasks <- task
	workerQueueDepth.Set(float64(len(w.tasks)))
	return true
}

// Close stops accepting tasks, runs everything already queued and waits for
// the lane to exit.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.tasks)
	}
	w.mu.Unlock()
	<-w.done
}
