package ledger

// ProposalState is the lifecycle state of a proposal.
type ProposalState string

const (
	StatePending  ProposalState = "PENDING"
	StateActive   ProposalState = "ACTIVE"
	StateCanceled ProposalState = "CANCELED"
	StateQueued   ProposalState = "QUEUED"
	StateExecuted ProposalState = "EXECUTED"
)

var transitions = map[ProposalState][]ProposalState{
	StatePending: {StateActive, StateCanceled, StateQueued},
	StateActive:  {StateCanceled, StateQueued},
	StateQueued:  {StateExecuted, StateCanceled},
}

// CanTransition reports whether the governor lifecycle allows moving from s to next.
// Canceled and Executed are terminal.
func (s ProposalState) CanTransition(next ProposalState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known states.
func (s ProposalState) Valid() bool {
	switch s {
	case StatePending, StateActive, StateCanceled, StateQueued, StateExecuted:
		return true
	}
	return false
}
