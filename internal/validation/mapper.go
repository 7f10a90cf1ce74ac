package validation

import (
	"go.uber.org/zap"

	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// codeMapping pairs a taxonomy code with its default severity.
type codeMapping struct {
	Code     domainval.Code
	Severity domainval.Severity
}

// reasonTable is the one-to-one, closed mapping from executor reason
// codes to taxonomy codes. vendor_not_found deliberately maps to
// INACTIVE_VENDOR for downstream uniformity.
var reasonTable = map[domainval.ReasonCode]codeMapping{
	domainval.ReasonMissingField:     {domainval.CodeMissingRequiredField, domainval.SeverityError},
	domainval.ReasonInvalidFormat:    {domainval.CodeInvalidFieldFormat, domainval.SeverityError},
	domainval.ReasonInvalidAmount:    {domainval.CodeInvalidAmount, domainval.SeverityError},
	domainval.ReasonNoLineItems:      {domainval.CodeNoLineItems, domainval.SeverityError},
	domainval.ReasonExcessiveLines:   {domainval.CodeValidationError, domainval.SeverityWarning},
	domainval.ReasonLineMathMismatch: {domainval.CodeLineMathMismatch, domainval.SeverityError},
	domainval.ReasonSubtotalMismatch: {domainval.CodeSubtotalMismatch, domainval.SeverityError},
	domainval.ReasonTotalMismatch:    {domainval.CodeTotalMismatch, domainval.SeverityError},
	domainval.ReasonTaxRateMismatch:  {domainval.CodeInvalidAmount, domainval.SeverityWarning},
	domainval.ReasonVendorNotFound:   {domainval.CodeInactiveVendor, domainval.SeverityError},
	domainval.ReasonVendorInactive:   {domainval.CodeInactiveVendor, domainval.SeverityError},
	domainval.ReasonCurrencyMismatch: {domainval.CodeInvalidCurrency, domainval.SeverityError},
	domainval.ReasonPONotFound:       {domainval.CodePONotFound, domainval.SeverityError},
	domainval.ReasonPOAmountMismatch: {domainval.CodePOAmountMismatch, domainval.SeverityError},
	domainval.ReasonPOQtyMismatch:    {domainval.CodePOQuantityMismatch, domainval.SeverityError},
	domainval.ReasonGRNNotFound:      {domainval.CodeGRNNotFound, domainval.SeverityWarning},
	domainval.ReasonGRNQtyMismatch:   {domainval.CodeGRNQuantityMismatch, domainval.SeverityWarning},
	domainval.ReasonDuplicateSuspect: {domainval.CodeDuplicateInvoice, domainval.SeverityError},
	domainval.ReasonExcessiveAmount:  {domainval.CodeExcessiveAmount, domainval.SeverityWarning},
	domainval.ReasonStaleInvoice:     {domainval.CodeOldInvoice, domainval.SeverityWarning},
	domainval.ReasonTermsViolation:   {domainval.CodePaymentTermsViolation, domainval.SeverityWarning},
	domainval.ReasonSystemError:      {domainval.CodeValidationError, domainval.SeverityError},
}

// Mapper converts rule execution results into taxonomy issues.
type Mapper struct {
	logger *zap.Logger
}

// NewMapper creates a taxonomy mapper.
func NewMapper(logger *zap.Logger) *Mapper {
	return &Mapper{logger: logger}
}

// Map converts every finding of one execution result into an issue. A
// reason code outside the table is logged and mapped to a generic
// VALIDATION_ERROR; findings are never silently dropped.
func (m *Mapper) Map(result domainval.RuleExecutionResult) []domainval.Issue {
	if result.Passed {
		return nil
	}

	issues := make([]domainval.Issue, 0, len(result.Findings))
	for _, f := range result.Findings {
		mapping, ok := reasonTable[f.Reason]
		if !ok {
			m.logger.Error("unmapped reason code, falling back to VALIDATION_ERROR",
				zap.String("reason", string(f.Reason)),
				zap.String("rule", result.RuleID.String()))
			mapping = codeMapping{domainval.CodeValidationError, domainval.SeverityError}
		}

		issues = append(issues, domainval.Issue{
			Code:           mapping.Code,
			Severity:       mapping.Severity,
			Message:        f.Message,
			Rule:           result.RuleID,
			Field:          f.Field,
			Line:           f.Line,
			Expected:       f.Expected,
			Actual:         f.Actual,
			Details:        f.Details,
			AutoResolvable: mapping.Code.AutoResolvable(),
		})
	}
	return issues
}
