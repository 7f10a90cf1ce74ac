package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

func passedResult(confidence float64) *domainval.Result {
	return &domainval.Result{Passed: true, ConfidenceScore: confidence}
}

func failedResult(confidence float64, issues ...domainval.Issue) *domainval.Result {
	errors := 0
	warnings := 0
	for _, i := range issues {
		switch i.Severity {
		case domainval.SeverityError:
			errors++
		case domainval.SeverityWarning:
			warnings++
		}
	}
	return &domainval.Result{
		Passed:          false,
		ConfidenceScore: confidence,
		Issues:          issues,
		TotalIssues:     len(issues),
		ErrorCount:      errors,
		WarningCount:    warnings,
	}
}

func autoResolvableIssue() domainval.Issue {
	return domainval.Issue{
		Code:           domainval.CodeMissingRequiredField,
		Severity:       domainval.SeverityError,
		Rule:           domainval.RuleRequiredFields,
		Field:          "invoice_date",
		AutoResolvable: true,
	}
}

func blockingIssue(code domainval.Code) domainval.Issue {
	return domainval.Issue{
		Code:     code,
		Severity: domainval.SeverityError,
	}
}

func TestDecide_DecisionTable(t *testing.T) {
	e := NewEngine(0.90, 0.85)

	tests := []struct {
		name        string
		result      *domainval.Result
		wantOutcome Outcome
		wantHuman   bool
	}{
		{
			name:        "passed at auto-approve threshold",
			result:      passedResult(0.90),
			wantOutcome: OutcomeAutoApprove,
			wantHuman:   false,
		},
		{
			name:        "passed above auto-approve threshold",
			result:      passedResult(0.965),
			wantOutcome: OutcomeAutoApprove,
			wantHuman:   false,
		},
		{
			name:        "passed between thresholds conditionally approves",
			result:      passedResult(0.87),
			wantOutcome: OutcomeConditionalApprove,
			wantHuman:   false,
		},
		{
			name:        "passed below validation threshold goes to manual review",
			result:      passedResult(0.80),
			wantOutcome: OutcomeManualReview,
			wantHuman:   true,
		},
		{
			name:        "few auto-resolvable errors go to auto-resolve",
			result:      failedResult(0.88, autoResolvableIssue(), autoResolvableIssue()),
			wantOutcome: OutcomeAutoResolve,
			wantHuman:   false,
		},
		{
			name:        "auto-resolve floor at confidence 0.70",
			result:      failedResult(0.70, autoResolvableIssue()),
			wantOutcome: OutcomeAutoResolve,
			wantHuman:   false,
		},
		{
			name:        "auto-resolve denied below confidence floor",
			result:      failedResult(0.69, autoResolvableIssue()),
			wantOutcome: OutcomeManualReview,
			wantHuman:   true,
		},
		{
			name: "auto-resolve denied above error budget",
			result: failedResult(0.88,
				autoResolvableIssue(), autoResolvableIssue(),
				autoResolvableIssue(), autoResolvableIssue()),
			wantOutcome: OutcomeReviewRequired,
			wantHuman:   true,
		},
		{
			name:        "failed with trustworthy extraction requires review",
			result:      failedResult(0.90, blockingIssue(domainval.CodeSubtotalMismatch)),
			wantOutcome: OutcomeReviewRequired,
			wantHuman:   true,
		},
		{
			name:        "failed with weak extraction goes to manual review",
			result:      failedResult(0.60, blockingIssue(domainval.CodeSubtotalMismatch)),
			wantOutcome: OutcomeManualReview,
			wantHuman:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Decide(tt.result, 0.9)
			assert.Equal(t, tt.wantOutcome, d.Outcome)
			assert.Equal(t, tt.wantHuman, d.HumanReviewRequired)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestDecide_PolicyIssuesForceHumanReview(t *testing.T) {
	e := NewEngine(0.90, 0.85)

	// A passed result can still carry warning-severity policy findings, and
	// those override the approved outcome's no-human default.
	result := &domainval.Result{
		Passed:          true,
		ConfidenceScore: 0.95,
		Issues: []domainval.Issue{{
			Code:     domainval.CodeGRNNotFound,
			Severity: domainval.SeverityWarning,
		}},
		TotalIssues:  1,
		WarningCount: 1,
	}

	d := e.Decide(result, 0.9)
	assert.Equal(t, OutcomeAutoApprove, d.Outcome)
	assert.True(t, d.HumanReviewRequired)
}

func TestDecide_SuggestedActionsDeduplicated(t *testing.T) {
	e := NewEngine(0.90, 0.85)

	result := failedResult(0.90,
		blockingIssue(domainval.CodeLineMathMismatch),
		blockingIssue(domainval.CodeLineMathMismatch),
		blockingIssue(domainval.CodeDuplicateInvoice),
	)

	d := e.Decide(result, 0.9)
	assert.Equal(t, OutcomeReviewRequired, d.Outcome)
	assert.Equal(t, []string{
		"recalculate amounts against source document",
		"compare against prior invoice before paying",
	}, d.SuggestedActions)
}

func TestNewEngine_ThresholdFallbacks(t *testing.T) {
	e := NewEngine(0, 1.5)
	assert.Equal(t, DefaultAutoApproveThreshold, e.autoApproveThreshold)
	assert.Equal(t, DefaultValidationThreshold, e.validationThreshold)
}

func TestOutcome_Approved(t *testing.T) {
	assert.True(t, OutcomeAutoApprove.Approved())
	assert.True(t, OutcomeConditionalApprove.Approved())
	assert.False(t, OutcomeAutoResolve.Approved())
	assert.False(t, OutcomeReviewRequired.Approved())
	assert.False(t, OutcomeManualReview.Approved())
}
