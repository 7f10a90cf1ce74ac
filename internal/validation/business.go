package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/payables-ai/invoice-triage/internal/application/port"
	"github.com/payables-ai/invoice-triage/internal/domain/document"
	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// findVendor resolves the document's vendor. Not-found is expected and
// comes back as (nil, nil); only collaborator faults are errors.
func (e *Executor) findVendor(ctx context.Context, doc *document.DocumentData) (*port.Vendor, error) {
	name := strings.TrimSpace(doc.Header.VendorName)
	if name == "" {
		return nil, nil
	}
	lctx, cancel := e.lookupCtx(ctx)
	defer cancel()
	return e.lookups.Vendors.FindByName(lctx, name)
}

// checkVendorActive requires the vendor to exist in the directory and be
// marked active. Not-found and inactive carry distinct reason codes.
func (e *Executor) checkVendorActive(ctx context.Context, doc *document.DocumentData) ([]domainval.Finding, error) {
	vendor, err := e.findVendor(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("vendor lookup: %w", err)
	}
	if vendor == nil {
		return []domainval.Finding{{
			Reason:  domainval.ReasonVendorNotFound,
			Message: fmt.Sprintf("vendor %q not found in vendor directory", doc.Header.VendorName),
			Field:   document.FieldVendorName,
			Actual:  doc.Header.VendorName,
		}}, nil
	}
	if !vendor.Active {
		return []domainval.Finding{{
			Reason:  domainval.ReasonVendorInactive,
			Message: fmt.Sprintf("vendor %q is inactive", vendor.Name),
			Field:   document.FieldVendorName,
			Actual:  vendor.Name,
			Details: map[string]any{"vendor_id": vendor.ID},
		}}, nil
	}
	return nil, nil
}

// checkCurrency requires the invoice currency to equal the vendor's
// configured currency. Skipped when the vendor is unknown (the vendor
// rule already reports that) or the invoice states no currency.
func (e *Executor) checkCurrency(ctx context.Context, doc *document.DocumentData) ([]domainval.Finding, bool, error) {
	currency := strings.ToUpper(strings.TrimSpace(doc.Header.Currency))
	if currency == "" {
		return nil, true, nil
	}
	vendor, err := e.findVendor(ctx, doc)
	if err != nil {
		return nil, false, fmt.Errorf("vendor lookup: %w", err)
	}
	if vendor == nil || vendor.Currency == "" {
		return nil, true, nil
	}
	if strings.EqualFold(currency, vendor.Currency) {
		return nil, false, nil
	}
	return []domainval.Finding{{
		Reason:   domainval.ReasonCurrencyMismatch,
		Message:  fmt.Sprintf("invoice currency %s differs from vendor currency %s", currency, vendor.Currency),
		Field:    document.FieldCurrency,
		Expected: vendor.Currency,
		Actual:   currency,
	}}, false, nil
}

// checkPOMatch resolves a stated PO number and compares the invoice total
// to the PO amount within a percentage tolerance. Absence of a PO
// reference is not a failure.
func (e *Executor) checkPOMatch(ctx context.Context, rule domainval.Rule, doc *document.DocumentData) ([]domainval.Finding, bool, error) {
	poNumber := strings.TrimSpace(doc.Header.PONumber)
	if poNumber == "" {
		return nil, true, nil
	}

	lctx, cancel := e.lookupCtx(ctx)
	defer cancel()
	po, err := e.lookups.Orders.FindPO(lctx, poNumber)
	if err != nil {
		return nil, false, fmt.Errorf("po lookup: %w", err)
	}
	if po == nil {
		return []domainval.Finding{{
			Reason:  domainval.ReasonPONotFound,
			Message: fmt.Sprintf("purchase order %q not found", poNumber),
			Field:   document.FieldPONumber,
			Actual:  poNumber,
		}}, false, nil
	}

	total, err2 := document.ParseAmount(doc.Header.Total)
	if err2 != nil {
		return nil, true, nil
	}

	pct := rule.Params.Float(domainval.ParamPOTolerancePct, 5)
	allowed := po.Amount.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100)).Abs()
	if total.Sub(po.Amount).Abs().Cmp(allowed) <= 0 {
		return nil, false, nil
	}
	return []domainval.Finding{{
		Reason:   domainval.ReasonPOAmountMismatch,
		Message:  fmt.Sprintf("invoice total %s differs from PO %s amount %s by more than %.1f%%", total, poNumber, po.Amount, pct),
		Field:    document.FieldTotal,
		Expected: po.Amount.String(),
		Actual:   total.String(),
		Details:  map[string]any{"po_number": poNumber, "tolerance_pct": pct},
	}}, false, nil
}

// checkGRNMatch verifies received quantities against invoiced quantities
// within a percentage tolerance when a matched PO exists.
func (e *Executor) checkGRNMatch(ctx context.Context, rule domainval.Rule, doc *document.DocumentData) ([]domainval.Finding, bool, error) {
	poNumber := strings.TrimSpace(doc.Header.PONumber)
	if poNumber == "" {
		return nil, true, nil
	}

	lctx, cancel := e.lookupCtx(ctx)
	defer cancel()
	po, err := e.lookups.Orders.FindPO(lctx, poNumber)
	if err != nil {
		return nil, false, fmt.Errorf("po lookup: %w", err)
	}
	if po == nil {
		// The PO rule reports unresolved orders.
		return nil, true, nil
	}

	rctx, rcancel := e.lookupCtx(ctx)
	defer rcancel()
	receipts, err := e.lookups.Orders.FindReceipts(rctx, poNumber)
	if err != nil {
		return nil, false, fmt.Errorf("grn lookup: %w", err)
	}
	if len(receipts) == 0 {
		return []domainval.Finding{{
			Reason:  domainval.ReasonGRNNotFound,
			Message: fmt.Sprintf("no goods receipts recorded for purchase order %q", poNumber),
			Field:   document.FieldPONumber,
			Actual:  poNumber,
		}}, false, nil
	}

	received := decimal.Zero
	for _, r := range receipts {
		received = received.Add(r.Quantity)
	}

	invoiced := decimal.Zero
	counted := 0
	for _, line := range doc.Lines {
		qty, err := document.ParseQuantity(line.Quantity)
		if err != nil {
			continue
		}
		invoiced = invoiced.Add(qty)
		counted++
	}
	if counted == 0 || received.IsZero() {
		return nil, true, nil
	}

	pct := rule.Params.Float(domainval.ParamGRNTolerancePct, 10)
	allowed := received.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100)).Abs()
	if invoiced.Sub(received).Abs().Cmp(allowed) <= 0 {
		return nil, false, nil
	}
	return []domainval.Finding{{
		Reason:   domainval.ReasonGRNQtyMismatch,
		Message:  fmt.Sprintf("invoiced quantity %s differs from received quantity %s by more than %.1f%%", invoiced, received, pct),
		Expected: received.String(),
		Actual:   invoiced.String(),
		Details:  map[string]any{"po_number": poNumber, "tolerance_pct": pct},
	}}, false, nil
}

// checkDuplicate searches prior invoices for the same vendor and invoice
// number. Exact amount equality raises the reported confidence but never
// changes the outcome.
func (e *Executor) checkDuplicate(ctx context.Context, rule domainval.Rule, doc *document.DocumentData) ([]domainval.Finding, bool, error) {
	number := strings.TrimSpace(doc.Header.InvoiceNumber)
	if number == "" {
		return nil, true, nil
	}
	vendor, err := e.findVendor(ctx, doc)
	if err != nil {
		return nil, false, fmt.Errorf("vendor lookup: %w", err)
	}
	if vendor == nil {
		return nil, true, nil
	}

	lctx, cancel := e.lookupCtx(ctx)
	defer cancel()
	candidates, err := e.lookups.Invoices.FindByVendorAndNumber(lctx, vendor.ID, number, doc.SourceID)
	if err != nil {
		return nil, false, fmt.Errorf("duplicate search: %w", err)
	}
	if len(candidates) == 0 {
		return nil, false, nil
	}

	confidence := rule.Params.Float(domainval.ParamDuplicateConf, 0.90)
	tol := defaultTolerance(rule)
	if total, err := document.ParseAmount(doc.Header.Total); err == nil {
		for _, c := range candidates {
			if withinTolerance(total, c.Total, tol) {
				confidence = rule.Params.Float(domainval.ParamExactMatchConf, 0.98)
				break
			}
		}
	}

	first := candidates[0]
	return []domainval.Finding{{
		Reason:  domainval.ReasonDuplicateSuspect,
		Message: fmt.Sprintf("invoice %q from vendor %q already seen on %s", number, vendor.Name, first.SeenAt.Format("2006-01-02")),
		Field:   document.FieldInvoiceNumber,
		Actual:  number,
		Details: map[string]any{
			"candidate_count":      len(candidates),
			"first_seen_id":        first.ID,
			"duplicate_confidence": confidence,
		},
	}}, false, nil
}

// checkInvoiceAge warns when the invoice date is older than the
// configured maximum age.
func (e *Executor) checkInvoiceAge(rule domainval.Rule, doc *document.DocumentData) ([]domainval.Finding, bool) {
	date, err := document.ParseDate(doc.Header.InvoiceDate)
	if err != nil {
		return nil, true
	}
	maxAge := rule.Params.Int(domainval.ParamMaxAgeDays, 90)
	age := int(e.now().Sub(date).Hours() / 24)
	if age <= maxAge {
		return nil, false
	}
	return []domainval.Finding{{
		Reason:   domainval.ReasonStaleInvoice,
		Message:  fmt.Sprintf("invoice is %d days old, maximum age is %d days", age, maxAge),
		Field:    document.FieldInvoiceDate,
		Expected: fmt.Sprintf("<= %d days", maxAge),
		Actual:   fmt.Sprintf("%d days", age),
	}}, false
}

// checkAmountLimit warns when the total exceeds the configured ceiling,
// or the vendor's credit limit when a directory is available and the
// vendor has one.
func (e *Executor) checkAmountLimit(ctx context.Context, rule domainval.Rule, doc *document.DocumentData) ([]domainval.Finding, bool, error) {
	total, err := document.ParseAmount(doc.Header.Total)
	if err != nil {
		return nil, true, nil
	}

	ceiling := rule.Params.Decimal(domainval.ParamAmountCeiling, decimal.NewFromInt(25000))
	limit := ceiling
	source := "configured ceiling"

	if e.lookups.Vendors != nil {
		vendor, err := e.findVendor(ctx, doc)
		if err != nil {
			return nil, false, fmt.Errorf("vendor lookup: %w", err)
		}
		if vendor != nil && vendor.CreditLimit.IsPositive() && vendor.CreditLimit.Cmp(limit) < 0 {
			limit = vendor.CreditLimit
			source = "vendor credit limit"
		}
	}

	if total.Cmp(limit) <= 0 {
		return nil, false, nil
	}
	return []domainval.Finding{{
		Reason:   domainval.ReasonExcessiveAmount,
		Message:  fmt.Sprintf("invoice total %s exceeds %s %s", total, source, limit),
		Field:    document.FieldTotal,
		Expected: "<= " + limit.String(),
		Actual:   total.String(),
		Details:  map[string]any{"limit_source": source},
	}}, false, nil
}

// checkPaymentTerms warns when the invoice states payment terms that
// differ from the vendor's agreed terms.
func (e *Executor) checkPaymentTerms(ctx context.Context, doc *document.DocumentData) ([]domainval.Finding, bool, error) {
	terms := strings.TrimSpace(doc.Header.PaymentTerms)
	if terms == "" {
		return nil, true, nil
	}
	vendor, err := e.findVendor(ctx, doc)
	if err != nil {
		return nil, false, fmt.Errorf("vendor lookup: %w", err)
	}
	if vendor == nil || vendor.PaymentTerms == "" {
		return nil, true, nil
	}
	if normalizeTerms(terms) == normalizeTerms(vendor.PaymentTerms) {
		return nil, false, nil
	}
	return []domainval.Finding{{
		Reason:   domainval.ReasonTermsViolation,
		Message:  fmt.Sprintf("invoice terms %q differ from agreed vendor terms %q", terms, vendor.PaymentTerms),
		Field:    document.FieldPaymentTerms,
		Expected: vendor.PaymentTerms,
		Actual:   terms,
	}}, false, nil
}

func normalizeTerms(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
