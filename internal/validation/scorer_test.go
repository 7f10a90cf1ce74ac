package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

func execResult(id domainval.RuleID, passed, skipped bool) domainval.RuleExecutionResult {
	r := domainval.RuleExecutionResult{RuleID: id, Passed: passed, Skipped: skipped}
	if !passed {
		r.Findings = []domainval.Finding{{Reason: domainval.ReasonMissingField, Message: "x"}}
	}
	return r
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		results    []domainval.RuleExecutionResult
		confidence float64
		want       float64
	}{
		{
			name: "all passed full extraction confidence",
			results: []domainval.RuleExecutionResult{
				execResult(domainval.RuleRequiredFields, true, false),
				execResult(domainval.RuleLineMath, true, false),
			},
			confidence: 1.0,
			want:       1.0,
		},
		{
			name: "clean pass at extraction confidence 0.95",
			results: []domainval.RuleExecutionResult{
				execResult(domainval.RuleRequiredFields, true, false),
				execResult(domainval.RuleFieldFormats, true, false),
				execResult(domainval.RuleLineMath, true, false),
				execResult(domainval.RuleTotalMatch, true, false),
			},
			confidence: 0.95,
			want:       0.965,
		},
		{
			name: "half the rules failed",
			results: []domainval.RuleExecutionResult{
				execResult(domainval.RuleRequiredFields, true, false),
				execResult(domainval.RuleLineMath, false, false),
			},
			confidence: 0.8,
			want:       0.71,
		},
		{
			name: "skipped rules excluded from pass-rate",
			results: []domainval.RuleExecutionResult{
				execResult(domainval.RuleRequiredFields, true, false),
				execResult(domainval.RuleSubtotalMatch, true, true),
				execResult(domainval.RuleTaxRate, true, true),
			},
			confidence: 0.9,
			want:       0.93,
		},
		{
			name:       "no rules run scores zero",
			results:    nil,
			confidence: 0.99,
			want:       0.0,
		},
		{
			name: "all rules skipped scores zero",
			results: []domainval.RuleExecutionResult{
				execResult(domainval.RuleSubtotalMatch, true, true),
			},
			confidence: 0.99,
			want:       0.0,
		},
		{
			name: "extraction confidence clamped above one",
			results: []domainval.RuleExecutionResult{
				execResult(domainval.RuleRequiredFields, true, false),
			},
			confidence: 1.7,
			want:       1.0,
		},
		{
			name: "negative extraction confidence clamped to zero",
			results: []domainval.RuleExecutionResult{
				execResult(domainval.RuleRequiredFields, true, false),
			},
			confidence: -0.3,
			want:       0.3,
		},
		{
			name: "rounded to three decimal places",
			results: []domainval.RuleExecutionResult{
				execResult(domainval.RuleRequiredFields, true, false),
				execResult(domainval.RuleFieldFormats, true, false),
				execResult(domainval.RuleLineMath, false, false),
			},
			confidence: 0.87,
			want:       0.809,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.results, tt.confidence)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
