// Package validation defines the rule catalog types, the closed issue
// taxonomy, and the immutable result model produced by one validation
// attempt over an extracted invoice.
package validation

import (
	"github.com/shopspring/decimal"
)

// Category groups validation rules by what they inspect.
type Category string

const (
	CategoryStructural   Category = "structural"
	CategoryMathematical Category = "mathematical"
	CategoryBusiness     Category = "business"
)

// Severity ranks a finding. Errors block auto-approval, warnings block
// only in strict mode, info never blocks.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// RuleID is the closed set of rule identifiers. Dispatch from identifier
// to handler is a static switch in the executor, so an identifier outside
// this set cannot be evaluated.
type RuleID string

const (
	RuleRequiredFields RuleID = "required_fields"
	RuleFieldFormats   RuleID = "field_formats"
	RuleLineItemCount  RuleID = "line_item_count"
	RuleLinesPresent   RuleID = "lines_present"

	RuleLineMath      RuleID = "line_math"
	RuleSubtotalMatch RuleID = "subtotal_match"
	RuleTotalMatch    RuleID = "total_match"
	RuleTaxRate       RuleID = "tax_rate"

	RuleVendorActive  RuleID = "vendor_active"
	RuleCurrencyMatch RuleID = "currency_match"
	RulePOMatch       RuleID = "po_match"
	RuleGRNMatch      RuleID = "grn_match"
	RuleDuplicate     RuleID = "duplicate_check"
	RuleInvoiceAge    RuleID = "invoice_age"
	RuleAmountLimit   RuleID = "amount_limit"
	RulePaymentTerms  RuleID = "payment_terms"
)

// String returns the string representation of the rule identifier.
func (r RuleID) String() string {
	return string(r)
}

// Parameter keys understood by the rule handlers.
const (
	ParamRequiredFields   = "required_fields"
	ParamTolerance        = "tolerance"
	ParamMaxLineItems     = "max_line_items"
	ParamTaxRates         = "tax_rates"
	ParamPOTolerancePct   = "po_tolerance_pct"
	ParamGRNTolerancePct  = "grn_tolerance_pct"
	ParamMaxAgeDays       = "max_age_days"
	ParamAmountCeiling    = "amount_ceiling"
	ParamDuplicateConf    = "duplicate_confidence"
	ParamExactMatchConf   = "exact_match_confidence"
)

// Params is the parameter bag attached to one catalog rule.
type Params map[string]any

// Decimal reads a decimal parameter, falling back to def when the key is
// absent or not convertible.
func (p Params) Decimal(key string, def decimal.Decimal) decimal.Decimal {
	switch v := p[key].(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return def
}

// Float reads a float parameter with a default.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Int reads an integer parameter with a default.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// Strings reads a string-list parameter.
func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Floats reads a float-list parameter.
func (p Params) Floats(key string) []float64 {
	switch v := p[key].(type) {
	case []float64:
		return v
	case []any:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			if f, ok := item.(float64); ok {
				out = append(out, f)
			}
		}
		return out
	}
	return nil
}

// Rule is one immutable catalog entry.
type Rule struct {
	ID       RuleID
	Category Category
	Severity Severity
	Enabled  bool
	Params   Params
}
