package session

import "fmt"

// ContractError is the panic value raised when a request is issued while its
// state precondition does not hold. It indicates a caller bug.
type ContractError struct {
	Op    string
	State State
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("session: %s not allowed in state %s", e.Op, e.State)
}

// IsContractError reports whether v (an error or a recovered panic value) is a ContractError.
func IsContractError(v any) bool {
	_, ok := v.(*ContractError)
	return ok
}

func contractViolation(op string, st State) *ContractError {
	contractViolationsTotal.WithLabelValues(op).Inc()
	return &ContractError{Op: op, State: st}
}

type closedError struct{}

func (closedError) Error() string { return "session: closed" }

// ErrClosed is returned by waits on a closed session.
var ErrClosed error = closedError{}
