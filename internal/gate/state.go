package gate

import "fmt"

// State tracks one verb invocation through the safety pipeline.
type State string

const (
	StateProposed          State = "proposed"
	StatePreviewed         State = "previewed"
	StateConfirmed         State = "confirmed"
	StateCriticalConfirmed State = "critical-confirmed"
	StateApplied           State = "applied"
	StateDeclined          State = "declined"
	StateAborted           State = "aborted"
)

// transitions is the full legal transition table. Terminal states have
// no outgoing edges.
var transitions = map[State][]State{
	StateProposed:          {StatePreviewed, StateAborted},
	StatePreviewed:         {StateConfirmed, StateDeclined, StateAborted},
	StateConfirmed:         {StateCriticalConfirmed, StateApplied, StateDeclined, StateAborted},
	StateCriticalConfirmed: {StateApplied, StateAborted},
}

// Terminal reports whether no further transition is legal.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Transaction is the explicit state machine for a single invocation.
// Illegal transitions are programming errors and fail loudly.
type Transaction struct {
	state State
}

// NewTransaction starts at Proposed.
func NewTransaction() *Transaction {
	return &Transaction{state: StateProposed}
}

// State returns the current state.
func (t *Transaction) State() State {
	return t.state
}

// To advances the machine or fails on an illegal edge.
func (t *Transaction) To(next State) error {
	for _, allowed := range transitions[t.state] {
		if allowed == next {
			t.state = next
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s", t.state, next)
}
