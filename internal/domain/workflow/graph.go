package workflow

// NewProcessingBuilder returns a builder pre-configured with the invoice
// processing transition graph:
//
//	received -> extracted -> validated -> triaged -> {staged | review}
//
// with a retry pseudo-state that re-enters the failed step, escalation
// from any non-terminal state, and direct routing to review for
// non-recoverable input faults. A human verdict on a review-state
// instance resumes into triaged (after re-validation) or fails it.
func NewProcessingBuilder() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StateReceived).
		Permit(TriggerExtracted, StateExtracted).
		Permit(TriggerRetry, StateRetry).
		Permit(TriggerRequestReview, StateReview).
		Permit(TriggerEscalate, StateEscalated).
		Permit(TriggerFail, StateFailed)

	b.Configure(StateExtracted).
		Permit(TriggerValidated, StateValidated).
		Permit(TriggerRetry, StateRetry).
		Permit(TriggerRequestReview, StateReview).
		Permit(TriggerEscalate, StateEscalated).
		Permit(TriggerFail, StateFailed)

	b.Configure(StateValidated).
		Permit(TriggerTriaged, StateTriaged).
		Permit(TriggerRetry, StateRetry).
		Permit(TriggerRequestReview, StateReview).
		Permit(TriggerEscalate, StateEscalated).
		Permit(TriggerFail, StateFailed)

	b.Configure(StateTriaged).
		Permit(TriggerStage, StateStaged).
		Permit(TriggerRequestReview, StateReview).
		// auto-resolve patches fields and re-runs validation
		Permit(TriggerResume, StateValidated).
		Permit(TriggerRetry, StateRetry).
		Permit(TriggerEscalate, StateEscalated).
		Permit(TriggerFail, StateFailed)

	// Retry re-enters the failed step: on success the step's completion
	// trigger fires from here.
	b.Configure(StateRetry).
		Permit(TriggerExtracted, StateExtracted).
		Permit(TriggerValidated, StateValidated).
		Permit(TriggerTriaged, StateTriaged).
		Permit(TriggerStage, StateStaged).
		Permit(TriggerRetry, StateRetry).
		Permit(TriggerRequestReview, StateReview).
		Permit(TriggerEscalate, StateEscalated).
		Permit(TriggerFail, StateFailed)

	b.Configure(StateReview).
		Permit(TriggerResume, StateTriaged).
		Permit(TriggerStage, StateStaged).
		Permit(TriggerEscalate, StateEscalated).
		Permit(TriggerFail, StateFailed)

	return b
}
