package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

func TestMapper_ReasonTable(t *testing.T) {
	tests := []struct {
		reason       domainval.ReasonCode
		wantCode     domainval.Code
		wantSeverity domainval.Severity
	}{
		{domainval.ReasonMissingField, domainval.CodeMissingRequiredField, domainval.SeverityError},
		{domainval.ReasonInvalidFormat, domainval.CodeInvalidFieldFormat, domainval.SeverityError},
		{domainval.ReasonInvalidAmount, domainval.CodeInvalidAmount, domainval.SeverityError},
		{domainval.ReasonNoLineItems, domainval.CodeNoLineItems, domainval.SeverityError},
		{domainval.ReasonExcessiveLines, domainval.CodeValidationError, domainval.SeverityWarning},
		{domainval.ReasonLineMathMismatch, domainval.CodeLineMathMismatch, domainval.SeverityError},
		{domainval.ReasonSubtotalMismatch, domainval.CodeSubtotalMismatch, domainval.SeverityError},
		{domainval.ReasonTotalMismatch, domainval.CodeTotalMismatch, domainval.SeverityError},
		{domainval.ReasonTaxRateMismatch, domainval.CodeInvalidAmount, domainval.SeverityWarning},
		{domainval.ReasonVendorNotFound, domainval.CodeInactiveVendor, domainval.SeverityError},
		{domainval.ReasonVendorInactive, domainval.CodeInactiveVendor, domainval.SeverityError},
		{domainval.ReasonCurrencyMismatch, domainval.CodeInvalidCurrency, domainval.SeverityError},
		{domainval.ReasonPONotFound, domainval.CodePONotFound, domainval.SeverityError},
		{domainval.ReasonPOAmountMismatch, domainval.CodePOAmountMismatch, domainval.SeverityError},
		{domainval.ReasonPOQtyMismatch, domainval.CodePOQuantityMismatch, domainval.SeverityError},
		{domainval.ReasonGRNNotFound, domainval.CodeGRNNotFound, domainval.SeverityWarning},
		{domainval.ReasonGRNQtyMismatch, domainval.CodeGRNQuantityMismatch, domainval.SeverityWarning},
		{domainval.ReasonDuplicateSuspect, domainval.CodeDuplicateInvoice, domainval.SeverityError},
		{domainval.ReasonExcessiveAmount, domainval.CodeExcessiveAmount, domainval.SeverityWarning},
		{domainval.ReasonStaleInvoice, domainval.CodeOldInvoice, domainval.SeverityWarning},
		{domainval.ReasonTermsViolation, domainval.CodePaymentTermsViolation, domainval.SeverityWarning},
		{domainval.ReasonSystemError, domainval.CodeValidationError, domainval.SeverityError},
	}

	m := NewMapper(zap.NewNop())
	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			issues := m.Map(domainval.RuleExecutionResult{
				RuleID:   domainval.RuleRequiredFields,
				Passed:   false,
				Findings: []domainval.Finding{{Reason: tt.reason, Message: "m"}},
			})
			require.Len(t, issues, 1)
			assert.Equal(t, tt.wantCode, issues[0].Code)
			assert.Equal(t, tt.wantSeverity, issues[0].Severity)
		})
	}
}

func TestMapper_PassedResultYieldsNoIssues(t *testing.T) {
	m := NewMapper(zap.NewNop())
	issues := m.Map(domainval.RuleExecutionResult{
		RuleID: domainval.RuleLineMath,
		Passed: true,
	})
	assert.Nil(t, issues)
}

func TestMapper_UnknownReasonFallsBackToValidationError(t *testing.T) {
	m := NewMapper(zap.NewNop())
	issues := m.Map(domainval.RuleExecutionResult{
		RuleID:   domainval.RuleLineMath,
		Passed:   false,
		Findings: []domainval.Finding{{Reason: "no_such_reason", Message: "m"}},
	})
	require.Len(t, issues, 1)
	assert.Equal(t, domainval.CodeValidationError, issues[0].Code)
	assert.Equal(t, domainval.SeverityError, issues[0].Severity)
}

func TestMapper_PreservesFindingContext(t *testing.T) {
	m := NewMapper(zap.NewNop())
	issues := m.Map(domainval.RuleExecutionResult{
		RuleID: domainval.RuleLineMath,
		Passed: false,
		Findings: []domainval.Finding{{
			Reason:   domainval.ReasonLineMathMismatch,
			Message:  "line amount does not match quantity x unit price",
			Line:     3,
			Expected: "33.33",
			Actual:   "33.35",
			Details:  map[string]any{"quantity": "3"},
		}},
	})
	require.Len(t, issues, 1)
	issue := issues[0]
	assert.Equal(t, domainval.RuleLineMath, issue.Rule)
	assert.Equal(t, 3, issue.Line)
	assert.Equal(t, "33.33", issue.Expected)
	assert.Equal(t, "33.35", issue.Actual)
	assert.Equal(t, "3", issue.Details["quantity"])
	assert.False(t, issue.AutoResolvable)
}

func TestMapper_AutoResolvableFlag(t *testing.T) {
	m := NewMapper(zap.NewNop())

	auto := m.Map(domainval.RuleExecutionResult{
		RuleID:   domainval.RuleRequiredFields,
		Passed:   false,
		Findings: []domainval.Finding{{Reason: domainval.ReasonMissingField, Field: "total"}},
	})
	require.Len(t, auto, 1)
	assert.True(t, auto[0].AutoResolvable)

	manual := m.Map(domainval.RuleExecutionResult{
		RuleID:   domainval.RuleDuplicate,
		Passed:   false,
		Findings: []domainval.Finding{{Reason: domainval.ReasonDuplicateSuspect}},
	})
	require.Len(t, manual, 1)
	assert.False(t, manual[0].AutoResolvable)
}
