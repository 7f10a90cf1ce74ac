// Package triage converts a validation outcome into a workflow routing
// decision. The engine is a pure function of its inputs: no I/O, no
// hidden state, evaluated as a top-to-bottom decision table where the
// first matching row wins.
package triage

import (
	"fmt"

	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// Outcome is the closed set of triage results.
type Outcome string

const (
	OutcomeAutoApprove        Outcome = "auto_approve"
	OutcomeConditionalApprove Outcome = "conditional_approve"
	OutcomeReviewRequired     Outcome = "review_required"
	OutcomeManualReview       Outcome = "manual_review"
	OutcomeAutoResolve        Outcome = "auto_resolve"
)

// Approved reports whether the outcome routes to export staging without
// a human in the loop.
func (o Outcome) Approved() bool {
	return o == OutcomeAutoApprove || o == OutcomeConditionalApprove
}

// Decision is the output of one triage evaluation. Never mutated.
type Decision struct {
	Outcome             Outcome  `json:"outcome"`
	HumanReviewRequired bool     `json:"human_review_required"`
	Reason              string   `json:"reason"`
	SuggestedActions    []string `json:"suggested_actions,omitempty"`
}

const (
	// DefaultAutoApproveThreshold gates the no-questions-asked path.
	DefaultAutoApproveThreshold = 0.90
	// DefaultValidationThreshold separates trustworthy extractions from
	// ones a human has to read.
	DefaultValidationThreshold = 0.85
	// autoResolveConfidenceFloor and autoResolveMaxErrors bound the
	// automatic LLM-patch path.
	autoResolveConfidenceFloor = 0.70
	autoResolveMaxErrors       = 3
)

// Engine evaluates the triage decision table.
type Engine struct {
	autoApproveThreshold float64
	validationThreshold  float64
}

// NewEngine creates a triage engine. Thresholds outside (0,1] fall back
// to defaults.
func NewEngine(autoApproveThreshold, validationThreshold float64) *Engine {
	if autoApproveThreshold <= 0 || autoApproveThreshold > 1 {
		autoApproveThreshold = DefaultAutoApproveThreshold
	}
	if validationThreshold <= 0 || validationThreshold > 1 {
		validationThreshold = DefaultValidationThreshold
	}
	return &Engine{
		autoApproveThreshold: autoApproveThreshold,
		validationThreshold:  validationThreshold,
	}
}

// Decide routes one validation result. qualityScore is the extraction
// layer's data-quality signal, reported for audit but not a routing key.
func (e *Engine) Decide(result *domainval.Result, qualityScore float64) Decision {
	passed := result.Passed
	confidence := result.ConfidenceScore
	errorCount := result.ErrorCount

	var d Decision
	switch {
	case passed && confidence >= e.autoApproveThreshold:
		d = Decision{
			Outcome: OutcomeAutoApprove,
			Reason:  fmt.Sprintf("validation passed with confidence %.3f >= %.2f", confidence, e.autoApproveThreshold),
		}

	case passed && confidence >= e.validationThreshold:
		d = Decision{
			Outcome: OutcomeConditionalApprove,
			Reason:  fmt.Sprintf("validation passed with confidence %.3f >= %.2f", confidence, e.validationThreshold),
			SuggestedActions: []string{
				"spot-check before payment run",
			},
		}

	case !passed && errorCount <= autoResolveMaxErrors &&
		confidence >= autoResolveConfidenceFloor && result.AllAutoResolvable():
		d = Decision{
			Outcome: OutcomeAutoResolve,
			Reason: fmt.Sprintf("%d auto-resolvable issue(s) with confidence %.3f, attempting field patch",
				result.TotalIssues, confidence),
			SuggestedActions: []string{
				"apply proposed field patches",
				"re-run validation",
			},
		}

	case !passed && confidence >= e.validationThreshold:
		// Extraction looks trustworthy yet validation failed: likely a
		// genuine data problem, route to review with priority.
		d = Decision{
			Outcome: OutcomeReviewRequired,
			Reason: fmt.Sprintf("validation failed with %d error(s) despite confidence %.3f",
				errorCount, confidence),
			SuggestedActions: suggestActions(result),
		}

	case confidence < e.validationThreshold:
		d = Decision{
			Outcome: OutcomeManualReview,
			Reason: fmt.Sprintf("confidence %.3f below validation threshold %.2f (quality score %.2f)",
				confidence, e.validationThreshold, qualityScore),
			SuggestedActions: []string{
				"verify extracted fields against source document",
			},
		}

	default:
		d = Decision{
			Outcome: OutcomeManualReview,
			Reason:  "no triage rule matched, defaulting to manual review",
		}
	}

	d.HumanReviewRequired = !d.Outcome.Approved() && d.Outcome != OutcomeAutoResolve

	// Non-resolvable errors and business-policy findings always demand a
	// human regardless of the table outcome.
	if result.HasBlockingIssue() || result.HasPolicyIssue() {
		d.HumanReviewRequired = true
	}

	return d
}

func suggestActions(result *domainval.Result) []string {
	var actions []string
	seen := map[domainval.Code]bool{}
	for _, issue := range result.Issues {
		if seen[issue.Code] {
			continue
		}
		seen[issue.Code] = true
		switch issue.Code {
		case domainval.CodeLineMathMismatch, domainval.CodeSubtotalMismatch, domainval.CodeTotalMismatch:
			actions = append(actions, "recalculate amounts against source document")
		case domainval.CodeInactiveVendor:
			actions = append(actions, "confirm vendor record in vendor directory")
		case domainval.CodeDuplicateInvoice:
			actions = append(actions, "compare against prior invoice before paying")
		case domainval.CodePONotFound, domainval.CodePOAmountMismatch:
			actions = append(actions, "reconcile against purchase order")
		}
	}
	return actions
}
