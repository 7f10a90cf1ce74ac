// Package workflow orchestrates one invoice processing attempt through
// extraction, validation, triage, and routing, with bounded retries and
// explicit escalation.
package workflow

import (
	"context"
	"errors"
	"fmt"
)

// FailureClass determines how the engine reacts to a failed step.
type FailureClass int

const (
	// FailureTransient covers expected, retryable faults: collaborator
	// timeouts, temporary unavailability.
	FailureTransient FailureClass = iota
	// FailureInput covers malformed input that a retry cannot fix; the
	// instance routes straight to human review.
	FailureInput
	// FailurePermanent covers faults where recovery is not applicable;
	// the instance hard-fails.
	FailurePermanent
)

// StepError wraps a step failure with its class.
type StepError struct {
	Class FailureClass
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step failed (%s): %v", e.Class, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (c FailureClass) String() string {
	switch c {
	case FailureTransient:
		return "transient"
	case FailureInput:
		return "input"
	case FailurePermanent:
		return "permanent"
	}
	return "unknown"
}

// Transient wraps err as a retryable step failure.
func Transient(err error) *StepError {
	return &StepError{Class: FailureTransient, Err: err}
}

// InputFault wraps err as a non-retryable input failure.
func InputFault(err error) *StepError {
	return &StepError{Class: FailureInput, Err: err}
}

// Permanent wraps err as a non-recoverable failure.
func Permanent(err error) *StepError {
	return &StepError{Class: FailurePermanent, Err: err}
}

// classify extracts the failure class from an error. Timeouts and
// unclassified errors default to transient, since retrying an unknown
// fault is cheaper than escalating one that would have recovered.
func classify(err error) FailureClass {
	var se *StepError
	if errors.As(err, &se) {
		return se.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	return FailureTransient
}

// ErrNotReviewable is returned when a human decision targets an instance
// that is not waiting for review.
var ErrNotReviewable = errors.New("instance is not in review state")

// ErrInstanceTerminal is returned when an operation targets an instance
// that already reached a terminal state.
var ErrInstanceTerminal = errors.New("instance is in a terminal state")
