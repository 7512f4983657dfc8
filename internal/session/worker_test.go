package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestWorker_FIFOAndNeverConcurrent(t *testing.T) {
	w := NewWorker(4, zerolog.Nop())
	var (
		mu      sync.Mutex
		order   []int
		running atomic.Int32
		overlap atomic.Bool
	)
	const n = 50
	for i := 0; i < n; i++ {
		i := i
		if !w.Submit(func() {
			if running.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(100 * time.Microsecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			running.Add(-1)
		}) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	w.Close()
	if overlap.Load() {
		t.Fatalf("tasks overlapped")
	}
	if len(order) != n {
		t.Fatalf("expected %d tasks run, got %d", n, len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("out of order at %d: %v", i, order)
		}
	}
}

func TestWorker_PanicDoesNotKillLane(t *testing.T) {
	before := testutil.ToFloat64(workerPanicsTotal)
	w := NewWorker(1, zerolog.Nop())
	ran := make(chan struct{})
	w.Submit(func() { panic("boom") })
	w.Submit(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("task after panic never ran")
	}
	w.Close()
	if got := testutil.ToFloat64(workerPanicsTotal) - before; got != 1 {
		t.Fatalf("expected one recorded panic, got %v", got)
	}
}

func TestWorker_SubmitAfterClose(t *testing.T) {
	w := NewWorker(1, zerolog.Nop())
	w.Close()
	if w.Submit(func() {}) {
		t.Fatalf("expected submit after close to be rejected")
	}
	w.Close() // idempotent
}

func TestMailbox_OrderAndClose(t *testing.T) {
	m := newMailbox(zerolog.Nop())
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		m.Post(func() { got = append(got, i) })
	}
	m.Post(func() { panic("ignored") })
	m.Post(func() { got = append(got, 100) })
	m.Close()
	if len(got) != 101 {
		t.Fatalf("expected 101 closures applied, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d", i)
		}
	}
	m.Post(func() { t.Errorf("post after close must be dropped") })
}

func TestWorker_QueueDepthDrainsToZero(t *testing.T) {
	w := NewWorker(8, zerolog.Nop())
	gate := make(chan struct{})
	w.Submit(func() { <-gate })
	for i := 0; i < 3; i++ {
		w.Submit(func() {})
	}
	close(gate)
	w.Close()
	if got := testutil.ToFloat64(workerQueueDepth); got != 0 {
		t.Fatalf("queue depth gauge=%v after drain", got)
	}
}
