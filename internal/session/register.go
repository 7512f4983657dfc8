package session

import "sync/atomic"

// stateRegister holds the live State. Reads and writes are atomic; guarded
// transitions are compare-and-swap loops, so a precondition check and the
// write it guards are never split by another transition.
type stateRegister struct {
	v atomic.Uint32
}

func (r *stateRegister) Load() State { return State(r.v.Load()) }

// Swap stores next unconditionally and returns the previous state.
func (r *stateRegister) Swap(next State) State { return State(r.v.Swap(uint32(next))) }

// CompareAndSwap moves from old to next only if the register still holds old.
func (r *stateRegister) CompareAndSwap(old, next State) bool {
	return r.v.CompareAndSwap(uint32(old), uint32(next))
}

// Transition stores next if allowed(current) holds. It returns the state
// observed at the time of the decision and whether the write happened.
func (r *stateRegister) Transition(allowed func(State) bool, next State) (State, bool) {
	for {
		cur := r.Load()
		if !allowed(cur) {
			return cur, false
		}
		if r.CompareAndSwap(cur, next) {
			return cur, true
		}
	}
}
