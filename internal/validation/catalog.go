// Package validation implements the rule-evaluation engine: the catalog
// of enabled rules, the per-rule executor, the taxonomy mapper, the
// confidence scorer, and the aggregator that turns one document into one
// immutable validation result.
package validation

import (
	"github.com/shopspring/decimal"

	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// CatalogConfig carries the tunable rule parameters. Zero values are
// replaced by defaults in NewCatalog.
type CatalogConfig struct {
	// Tolerance is the maximum absolute difference between two monetary
	// values before they are considered mismatched. Default one minor
	// currency unit (0.01).
	Tolerance decimal.Decimal

	RequiredFields []string
	MaxLineItems   int
	TaxRates       []float64

	POTolerancePct  float64
	GRNTolerancePct float64

	MaxAgeDays    int
	AmountCeiling decimal.Decimal

	DuplicateConfidence  float64
	ExactMatchConfidence float64

	// DisabledRules lists rule identifiers to load as disabled.
	DisabledRules []string

	Version string
}

// DefaultCatalogConfig returns the stock rule parameters.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Tolerance:            decimal.NewFromFloat(0.01),
		RequiredFields:       []string{"vendor_name", "invoice_number", "total"},
		MaxLineItems:         200,
		TaxRates:             []float64{0, 5, 10, 13, 20, 25},
		POTolerancePct:       5,
		GRNTolerancePct:      10,
		MaxAgeDays:           90,
		AmountCeiling:        decimal.NewFromInt(25000),
		DuplicateConfidence:  0.90,
		ExactMatchConfidence: 0.98,
		Version:              "v1",
	}
}

// Catalog is the ordered, immutable set of validation rules for the
// process lifetime. Catalog order determines issue ordering, so two runs
// over identical input always produce identical results.
type Catalog struct {
	rules   []domainval.Rule
	version string
}

// NewCatalog builds the catalog from configuration. Rules listed in
// DisabledRules are present but disabled; disabling a rule can only
// remove its issues, never add new ones.
func NewCatalog(cfg CatalogConfig) *Catalog {
	def := DefaultCatalogConfig()
	if cfg.Tolerance.IsZero() {
		cfg.Tolerance = def.Tolerance
	}
	if len(cfg.RequiredFields) == 0 {
		cfg.RequiredFields = def.RequiredFields
	}
	if cfg.MaxLineItems <= 0 {
		cfg.MaxLineItems = def.MaxLineItems
	}
	if len(cfg.TaxRates) == 0 {
		cfg.TaxRates = def.TaxRates
	}
	if cfg.POTolerancePct <= 0 {
		cfg.POTolerancePct = def.POTolerancePct
	}
	if cfg.GRNTolerancePct <= 0 {
		cfg.GRNTolerancePct = def.GRNTolerancePct
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = def.MaxAgeDays
	}
	if cfg.AmountCeiling.IsZero() {
		cfg.AmountCeiling = def.AmountCeiling
	}
	if cfg.DuplicateConfidence <= 0 {
		cfg.DuplicateConfidence = def.DuplicateConfidence
	}
	if cfg.ExactMatchConfidence <= 0 {
		cfg.ExactMatchConfidence = def.ExactMatchConfidence
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}

	disabled := make(map[domainval.RuleID]bool, len(cfg.DisabledRules))
	for _, name := range cfg.DisabledRules {
		disabled[domainval.RuleID(name)] = true
	}

	tol := domainval.Params{domainval.ParamTolerance: cfg.Tolerance}

	rules := []domainval.Rule{
		// Structural rules run first: later categories assume the shape
		// they establish.
		{ID: domainval.RuleRequiredFields, Category: domainval.CategoryStructural, Severity: domainval.SeverityError,
			Params: domainval.Params{domainval.ParamRequiredFields: cfg.RequiredFields}},
		{ID: domainval.RuleFieldFormats, Category: domainval.CategoryStructural, Severity: domainval.SeverityError, Params: domainval.Params{}},
		{ID: domainval.RuleLinesPresent, Category: domainval.CategoryStructural, Severity: domainval.SeverityError, Params: domainval.Params{}},
		{ID: domainval.RuleLineItemCount, Category: domainval.CategoryStructural, Severity: domainval.SeverityWarning,
			Params: domainval.Params{domainval.ParamMaxLineItems: cfg.MaxLineItems}},

		{ID: domainval.RuleLineMath, Category: domainval.CategoryMathematical, Severity: domainval.SeverityError, Params: tol},
		{ID: domainval.RuleSubtotalMatch, Category: domainval.CategoryMathematical, Severity: domainval.SeverityError, Params: tol},
		{ID: domainval.RuleTotalMatch, Category: domainval.CategoryMathematical, Severity: domainval.SeverityError, Params: tol},
		{ID: domainval.RuleTaxRate, Category: domainval.CategoryMathematical, Severity: domainval.SeverityWarning,
			Params: domainval.Params{domainval.ParamTolerance: cfg.Tolerance, domainval.ParamTaxRates: cfg.TaxRates}},

		{ID: domainval.RuleVendorActive, Category: domainval.CategoryBusiness, Severity: domainval.SeverityError, Params: domainval.Params{}},
		{ID: domainval.RuleCurrencyMatch, Category: domainval.CategoryBusiness, Severity: domainval.SeverityError, Params: domainval.Params{}},
		{ID: domainval.RulePOMatch, Category: domainval.CategoryBusiness, Severity: domainval.SeverityError,
			Params: domainval.Params{domainval.ParamPOTolerancePct: cfg.POTolerancePct}},
		{ID: domainval.RuleGRNMatch, Category: domainval.CategoryBusiness, Severity: domainval.SeverityWarning,
			Params: domainval.Params{domainval.ParamGRNTolerancePct: cfg.GRNTolerancePct}},
		{ID: domainval.RuleDuplicate, Category: domainval.CategoryBusiness, Severity: domainval.SeverityError,
			Params: domainval.Params{
				domainval.ParamTolerance:      cfg.Tolerance,
				domainval.ParamDuplicateConf:  cfg.DuplicateConfidence,
				domainval.ParamExactMatchConf: cfg.ExactMatchConfidence,
			}},
		{ID: domainval.RuleInvoiceAge, Category: domainval.CategoryBusiness, Severity: domainval.SeverityWarning,
			Params: domainval.Params{domainval.ParamMaxAgeDays: cfg.MaxAgeDays}},
		{ID: domainval.RuleAmountLimit, Category: domainval.CategoryBusiness, Severity: domainval.SeverityWarning,
			Params: domainval.Params{domainval.ParamAmountCeiling: cfg.AmountCeiling}},
		{ID: domainval.RulePaymentTerms, Category: domainval.CategoryBusiness, Severity: domainval.SeverityWarning, Params: domainval.Params{}},
	}

	for i := range rules {
		rules[i].Enabled = !disabled[rules[i].ID]
	}

	return &Catalog{rules: rules, version: cfg.Version}
}

// Rules returns the full catalog in stable order.
func (c *Catalog) Rules() []domainval.Rule {
	out := make([]domainval.Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Enabled returns the enabled rules in catalog order.
func (c *Catalog) Enabled() []domainval.Rule {
	out := make([]domainval.Rule, 0, len(c.rules))
	for _, r := range c.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// Version returns the catalog version recorded on every result.
func (c *Catalog) Version() string {
	return c.version
}
