package workflows

import "slices"

// StateMachine enforces status transitions for a ledger entity
type StateMachine[S ~string] struct {
	allowedTransitions map[S][]S
}

// NewStateMachine creates a state machine from an allowed-transition table.
// Statuses that only appear as targets are terminal.
func NewStateMachine[S ~string](transitions map[S][]S) *StateMachine[S] {
	allowed := make(map[S][]S, len(transitions))
	for from, to := range transitions {
		allowed[from] = slices.Clone(to)
	}
	return &StateMachine[S]{allowedTransitions: allowed}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine[S]) CanTransition(from, to S) bool {
	return slices.Contains(sm.allowedTransitions[from], to)
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine[S]) GetAllowedTransitions(from S) []S {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []S{}
	}
	return slices.Clone(allowed)
}

// IsTerminal reports whether no transition leaves from
func (sm *StateMachine[S]) IsTerminal(from S) bool {
	return len(sm.allowedTransitions[from]) == 0
}
