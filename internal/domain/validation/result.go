package validation

import (
	"time"
)

// Finding is one failure discovered by a rule handler. A single rule run
// may produce several findings (one per missing field, one per bad line).
type Finding struct {
	Reason   ReasonCode     `json:"reason"`
	Message  string         `json:"message"`
	Field    string         `json:"field,omitempty"`
	Line     int            `json:"line,omitempty"` // 1-based, 0 when not line-scoped
	Expected string         `json:"expected,omitempty"`
	Actual   string         `json:"actual,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// RuleExecutionResult is the outcome of running one rule over one
// document. Created fresh per run and never mutated.
type RuleExecutionResult struct {
	RuleID   RuleID        `json:"rule_name"`
	Passed   bool          `json:"passed"`
	Skipped  bool          `json:"skipped,omitempty"` // precondition absent (e.g. no subtotal stated)
	Findings []Finding     `json:"findings,omitempty"`
	Duration time.Duration `json:"execution_time"`
}

// Issue is a user-facing finding derived from a failed rule execution via
// the taxonomy mapper. Issues are never edited after creation, only
// superseded by a new Result on re-validation.
type Issue struct {
	Code           Code           `json:"code"`
	Severity       Severity       `json:"severity"`
	Message        string         `json:"message"`
	Rule           RuleID         `json:"rule"`
	Field          string         `json:"field,omitempty"`
	Line           int            `json:"line,omitempty"`
	Expected       string         `json:"expected,omitempty"`
	Actual         string         `json:"actual,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	AutoResolvable bool           `json:"auto_resolvable"`
}

// CategoryResult summarizes one rule group that actually ran. A nil
// CategoryResult on the aggregate means the group was skipped entirely
// (e.g. no lookup collaborator configured), which is distinct from the
// group running clean.
type CategoryResult struct {
	RulesRun   int  `json:"rules_run"`
	Passed     bool `json:"passed"`
	IssueCount int  `json:"issue_count"`
}

// Result is the immutable aggregate of one validation attempt.
type Result struct {
	Passed          bool      `json:"passed"`
	ConfidenceScore float64   `json:"confidence_score"`
	TotalIssues     int       `json:"total_issues"`
	ErrorCount      int       `json:"error_count"`
	WarningCount    int       `json:"warning_count"`
	InfoCount       int       `json:"info_count"`
	Issues          []Issue   `json:"issues"`

	MathResult         *CategoryResult `json:"math_result,omitempty"`
	MatchingResult     *CategoryResult `json:"matching_result,omitempty"`
	VendorPolicyResult *CategoryResult `json:"vendor_policy_result,omitempty"`
	DuplicateResult    *CategoryResult `json:"duplicate_result,omitempty"`

	RulesVersion string    `json:"rules_version"`
	ValidatedAt  time.Time `json:"validated_at"`
}

// HasBlockingIssue reports whether any error-severity issue is not
// auto-resolvable.
func (r *Result) HasBlockingIssue() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError && !issue.AutoResolvable {
			return true
		}
	}
	return false
}

// HasPolicyIssue reports whether any issue is vendor-policy or matching
// related.
func (r *Result) HasPolicyIssue() bool {
	for _, issue := range r.Issues {
		if issue.Code.PolicyRelated() {
			return true
		}
	}
	return false
}

// AllAutoResolvable reports whether every issue on the result is
// auto-resolvable. False when there are no issues at all, since there is
// nothing to resolve.
func (r *Result) AllAutoResolvable() bool {
	if len(r.Issues) == 0 {
		return false
	}
	for _, issue := range r.Issues {
		if !issue.AutoResolvable {
			return false
		}
	}
	return true
}
