package session

import (
	"sync"
	"testing"
)

func TestStatePredicates(t *testing.T) {
	for _, s := range AllStates {
		if got, want := s.Chattable(), s == StateReady; got != want {
			t.Fatalf("%s: Chattable=%v want %v", s, got, want)
		}
		if got, want := s.Resettable(), s == StateReady || s == StateGenerating; got != want {
			t.Fatalf("%s: Resettable=%v want %v", s, got, want)
		}
		wantInt := s == StateReady || s == StateGenerating || s == StateFailed || s == StatePendingImageUpload
		if got := s.Interruptible(); got != wantInt {
			t.Fatalf("%s: Interruptible=%v want %v", s, got, wantInt)
		}
		if got, want := s.Uploadable(), s == StatePendingImageUpload; got != want {
			t.Fatalf("%s: Uploadable=%v want %v", s, got, want)
		}
	}
}

func TestStateString(t *testing.T) {
	if StatePendingImageUpload.String() != "pending_image_upload" {
		t.Fatalf("unexpected name %q", StatePendingImageUpload.String())
	}
	if State(99).String() != "unknown" {
		t.Fatalf("expected unknown for out of range state")
	}
}

func TestPlanInterrupt(t *testing.T) {
	cases := map[State]interruptPlan{
		StateReady:              planRunInline,
		StateFailed:             planRunInline,
		StatePendingImageUpload: planRunInline,
		StateGenerating:         planEnqueue,
		StateResetting:          planIllegal,
		StateReloading:          planIllegal,
		StateTerminating:        planIllegal,
		StateProcessingImage:    planIllegal,
	}
	for st, want := range cases {
		if got := planInterrupt(st); got != want {
			t.Fatalf("planInterrupt(%s) = %s, want %s", st, got, want)
		}
	}
}

func TestRegisterTransition_SingleWinner(t *testing.T) {
	var r stateRegister
	const n = 64
	var wg sync.WaitGroup
	wins := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Transition(State.Chattable, StateGenerating); ok {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)
	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one winning transition, got %d", count)
	}
	if r.Load() != StateGenerating {
		t.Fatalf("expected generating, got %s", r.Load())
	}
}

func TestRegisterTransition_RejectsAndReportsObserved(t *testing.T) {
	var r stateRegister
	r.Swap(StateReloading)
	prev, ok := r.Transition(State.Interruptible, StateTerminating)
	if ok || prev != StateReloading {
		t.Fatalf("expected rejection observing reloading, got prev=%s ok=%v", prev, ok)
	}
	if r.Load() != StateReloading {
		t.Fatalf("rejected transition must not write")
	}
}
