package validation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
	"github.com/payables-ai/invoice-triage/internal/domain/document"
	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// Lookups bundles the optional business-rule collaborators. A nil lookup
// disables the rules that depend on it; the aggregator then omits the
// corresponding category sub-result instead of reporting a clean run.
type Lookups struct {
	Vendors  port.VendorDirectory
	Orders   port.PurchaseOrderStore
	Invoices port.InvoiceStore
}

// Executor runs single rules against a document. Expected failure paths
// (missing field, mismatch, not found) become findings with reason codes;
// collaborator faults become system_error findings. The executor never
// aborts an aggregation run.
type Executor struct {
	lookups       Lookups
	lookupTimeout time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// NewExecutor creates a rule executor. lookupTimeout bounds every
// collaborator call; zero means 5s.
func NewExecutor(lookups Lookups, lookupTimeout time.Duration, logger *zap.Logger) *Executor {
	if lookupTimeout <= 0 {
		lookupTimeout = 5 * time.Second
	}
	return &Executor{
		lookups:       lookups,
		lookupTimeout: lookupTimeout,
		now:           time.Now,
		logger:        logger,
	}
}

// CanRun reports whether the rule's required collaborator is configured.
func (e *Executor) CanRun(id domainval.RuleID) bool {
	switch id {
	case domainval.RuleVendorActive, domainval.RuleCurrencyMatch, domainval.RulePaymentTerms:
		return e.lookups.Vendors != nil
	case domainval.RulePOMatch, domainval.RuleGRNMatch:
		return e.lookups.Orders != nil
	case domainval.RuleDuplicate:
		return e.lookups.Invoices != nil && e.lookups.Vendors != nil
	}
	return true
}

// Execute runs one rule over the document and returns its result. The
// rule identifier set is closed: dispatch is a static switch, and an
// identifier outside the set yields a system_error finding.
func (e *Executor) Execute(ctx context.Context, rule domainval.Rule, doc *document.DocumentData) domainval.RuleExecutionResult {
	start := time.Now()

	var (
		findings []domainval.Finding
		skipped  bool
		err      error
	)

	switch rule.ID {
	case domainval.RuleRequiredFields:
		findings = e.checkRequiredFields(rule, doc)
	case domainval.RuleFieldFormats:
		findings = e.checkFieldFormats(doc)
	case domainval.RuleLinesPresent:
		findings = e.checkLinesPresent(doc)
	case domainval.RuleLineItemCount:
		findings = e.checkLineItemCount(rule, doc)

	case domainval.RuleLineMath:
		findings = e.checkLineMath(rule, doc)
	case domainval.RuleSubtotalMatch:
		findings, skipped = e.checkSubtotal(rule, doc)
	case domainval.RuleTotalMatch:
		findings, skipped = e.checkTotal(rule, doc)
	case domainval.RuleTaxRate:
		findings, skipped = e.checkTaxRate(rule, doc)

	case domainval.RuleVendorActive:
		findings, err = e.checkVendorActive(ctx, doc)
	case domainval.RuleCurrencyMatch:
		findings, skipped, err = e.checkCurrency(ctx, doc)
	case domainval.RulePOMatch:
		findings, skipped, err = e.checkPOMatch(ctx, rule, doc)
	case domainval.RuleGRNMatch:
		findings, skipped, err = e.checkGRNMatch(ctx, rule, doc)
	case domainval.RuleDuplicate:
		findings, skipped, err = e.checkDuplicate(ctx, rule, doc)
	case domainval.RuleInvoiceAge:
		findings, skipped = e.checkInvoiceAge(rule, doc)
	case domainval.RuleAmountLimit:
		findings, skipped, err = e.checkAmountLimit(ctx, rule, doc)
	case domainval.RulePaymentTerms:
		findings, skipped, err = e.checkPaymentTerms(ctx, doc)

	default:
		err = fmt.Errorf("unknown rule identifier %q", rule.ID)
	}

	if err != nil {
		// Collaborator fault: fail-isolated, never fail-fast.
		e.logger.Warn("rule execution fault",
			zap.String("rule", rule.ID.String()),
			zap.Error(err))
		findings = append(findings, domainval.Finding{
			Reason:  domainval.ReasonSystemError,
			Message: fmt.Sprintf("rule %s could not be evaluated: %v", rule.ID, err),
		})
	}

	return domainval.RuleExecutionResult{
		RuleID:   rule.ID,
		Passed:   len(findings) == 0,
		Skipped:  skipped && len(findings) == 0,
		Findings: findings,
		Duration: time.Since(start),
	}
}

// lookupCtx derives a bounded context for one collaborator call.
func (e *Executor) lookupCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.lookupTimeout)
}
