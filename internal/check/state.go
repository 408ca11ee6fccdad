package check

import "fmt"

// State is the lifecycle state of one example during a check pass.
type State string

const (
	StatePending State = "PENDING"
	StateRunning State = "RUNNING"
	StatePassed  State = "PASSED"
	StateFailed  State = "FAILED"
	StateCached  State = "CACHED"
	StateSkipped State = "SKIPPED"
)

// IsTerminal reports whether the state is terminal (finished).
func IsTerminal(s State) bool {
	switch s {
	case StatePassed, StateFailed, StateCached, StateSkipped:
		return true
	default:
		return false
	}
}

// DocumentState maps example index to its current State.
//
// It is a plain map so transition validation stays a pure function, decoupled
// from the checker that drives it.
type DocumentState map[int]State

// NewDocumentState initializes every example to PENDING.
func NewDocumentState(n int) DocumentState {
	st := make(DocumentState, n)
	for i := 0; i < n; i++ {
		st[i] = StatePending
	}
	return st
}

// Transition performs a validated transition for one example.
//
// The caller supplies the expected prior state so illegal sequencing is
// observable rather than silently overwritten.
func Transition(st DocumentState, index int, from, to State) error {
	cur, ok := st[index]
	if !ok {
		return fmt.Errorf("unknown example index %d", index)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for example %d: expected %s, got %s", index, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for example %d: %s -> %s", index, from, to)
	}
	st[index] = to
	return nil
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateRunning || to == StateCached || to == StateSkipped
	case StateRunning:
		return to == StatePassed || to == StateFailed
	default:
		return false
	}
}
