package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/payables-ai/invoice-triage/internal/domain/document"
	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// withinTolerance reports whether |a-b| <= tol using exact decimal
// arithmetic.
func withinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(tol) <= 0
}

func defaultTolerance(rule domainval.Rule) decimal.Decimal {
	return rule.Params.Decimal(domainval.ParamTolerance, decimal.NewFromFloat(0.01))
}

// checkLineMath verifies quantity x unit_price equals the stated line
// amount within tolerance, per line. Lines that do not parse are skipped;
// the format rule already flags them.
func (e *Executor) checkLineMath(rule domainval.Rule, doc *document.DocumentData) []domainval.Finding {
	tol := defaultTolerance(rule)

	var findings []domainval.Finding
	for i, line := range doc.Lines {
		qty, err := document.ParseQuantity(line.Quantity)
		if err != nil {
			continue
		}
		price, err := document.ParseAmount(line.UnitPrice)
		if err != nil {
			continue
		}
		amount, err := document.ParseAmount(line.Amount)
		if err != nil {
			continue
		}

		expected := qty.Mul(price)
		if !withinTolerance(expected, amount, tol) {
			findings = append(findings, domainval.Finding{
				Reason:   domainval.ReasonLineMathMismatch,
				Message:  fmt.Sprintf("line %d: %s x %s = %s, stated amount %s", i+1, qty, price, expected, amount),
				Line:     i + 1,
				Expected: expected.String(),
				Actual:   amount.String(),
				Details: map[string]any{
					"quantity":   qty.String(),
					"unit_price": price.String(),
					"tolerance":  tol.String(),
				},
			})
		}
	}
	return findings
}

// checkSubtotal verifies the sum of line amounts equals the stated header
// subtotal within tolerance. Skipped (not failed) when the subtotal is
// absent.
func (e *Executor) checkSubtotal(rule domainval.Rule, doc *document.DocumentData) ([]domainval.Finding, bool) {
	if strings.TrimSpace(doc.Header.Subtotal) == "" {
		return nil, true
	}
	subtotal, err := document.ParseAmount(doc.Header.Subtotal)
	if err != nil {
		return nil, true
	}

	sum := decimal.Zero
	counted := 0
	for _, line := range doc.Lines {
		amount, err := document.ParseAmount(line.Amount)
		if err != nil {
			continue
		}
		sum = sum.Add(amount)
		counted++
	}
	if counted == 0 {
		return nil, true
	}

	tol := defaultTolerance(rule)
	if withinTolerance(sum, subtotal, tol) {
		return nil, false
	}
	return []domainval.Finding{{
		Reason:   domainval.ReasonSubtotalMismatch,
		Message:  fmt.Sprintf("line amounts sum to %s, stated subtotal is %s", sum, subtotal),
		Field:    document.FieldSubtotal,
		Expected: sum.String(),
		Actual:   subtotal.String(),
		Details:  map[string]any{"tolerance": tol.String(), "lines_counted": counted},
	}}, false
}

// checkTotal verifies subtotal + tax equals the stated total within
// tolerance. Skipped when any participating field is absent or
// unparseable.
func (e *Executor) checkTotal(rule domainval.Rule, doc *document.DocumentData) ([]domainval.Finding, bool) {
	subtotal, err := document.ParseAmount(doc.Header.Subtotal)
	if err != nil {
		return nil, true
	}
	total, err := document.ParseAmount(doc.Header.Total)
	if err != nil {
		return nil, true
	}
	tax := decimal.Zero
	if strings.TrimSpace(doc.Header.Tax) != "" {
		if tax, err = document.ParseAmount(doc.Header.Tax); err != nil {
			return nil, true
		}
	}

	expected := subtotal.Add(tax)
	tol := defaultTolerance(rule)
	if withinTolerance(expected, total, tol) {
		return nil, false
	}
	return []domainval.Finding{{
		Reason:   domainval.ReasonTotalMismatch,
		Message:  fmt.Sprintf("subtotal %s + tax %s = %s, stated total is %s", subtotal, tax, expected, total),
		Field:    document.FieldTotal,
		Expected: expected.String(),
		Actual:   total.String(),
		Details:  map[string]any{"tolerance": tol.String()},
	}}, false
}

// checkTaxRate is a best-effort check that the stated tax matches one of
// the advertised rates applied to the subtotal. Warning severity only.
func (e *Executor) checkTaxRate(rule domainval.Rule, doc *document.DocumentData) ([]domainval.Finding, bool) {
	if strings.TrimSpace(doc.Header.Tax) == "" || strings.TrimSpace(doc.Header.Subtotal) == "" {
		return nil, true
	}
	tax, err := document.ParseAmount(doc.Header.Tax)
	if err != nil {
		return nil, true
	}
	subtotal, err := document.ParseAmount(doc.Header.Subtotal)
	if err != nil || subtotal.IsZero() {
		return nil, true
	}

	tol := defaultTolerance(rule)
	rates := rule.Params.Floats(domainval.ParamTaxRates)
	for _, rate := range rates {
		expected := subtotal.Mul(decimal.NewFromFloat(rate)).Div(decimal.NewFromInt(100)).Round(2)
		if withinTolerance(expected, tax, tol) {
			return nil, false
		}
	}

	actualRate := tax.Div(subtotal).Mul(decimal.NewFromInt(100)).Round(2)
	return []domainval.Finding{{
		Reason:  domainval.ReasonTaxRateMismatch,
		Message: fmt.Sprintf("tax %s is %s%% of subtotal, which matches no advertised rate", tax, actualRate),
		Field:   document.FieldTax,
		Actual:  actualRate.String() + "%",
		Details: map[string]any{"advertised_rates": rates},
	}}, false
}
