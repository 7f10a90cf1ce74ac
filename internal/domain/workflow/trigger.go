package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// Step completion triggers, fired by the engine when a step succeeds.
	TriggerExtracted Trigger = "EXTRACTED"
	TriggerValidated Trigger = "VALIDATED"
	TriggerTriaged   Trigger = "TRIAGED"

	// Routing triggers, fired after a triage decision or a human verdict.
	TriggerStage         Trigger = "STAGE"
	TriggerRequestReview Trigger = "REQUEST_REVIEW"
	TriggerResume        Trigger = "RESUME"

	// Failure-path triggers.
	TriggerRetry    Trigger = "RETRY"
	TriggerEscalate Trigger = "ESCALATE"
	TriggerFail     Trigger = "FAIL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
