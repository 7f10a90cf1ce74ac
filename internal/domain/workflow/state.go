package workflow

// State represents a workflow state in the invoice processing lifecycle
type State string

const (
	StateReceived  State = "RECEIVED"
	StateExtracted State = "EXTRACTED"
	StateValidated State = "VALIDATED"
	StateTriaged   State = "TRIAGED"
	StateRetry     State = "RETRY"
	StateReview    State = "REVIEW"
	StateStaged    State = "STAGED"
	StateEscalated State = "ESCALATED"
	StateFailed    State = "FAILED"
)

var validStates = map[State]bool{
	StateReceived:  true,
	StateExtracted: true,
	StateValidated: true,
	StateTriaged:   true,
	StateRetry:     true,
	StateReview:    true,
	StateStaged:    true,
	StateEscalated: true,
	StateFailed:    true,
}

var terminalStates = map[State]bool{
	StateStaged:    true,
	StateEscalated: true,
	StateFailed:    true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
