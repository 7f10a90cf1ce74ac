package validation

// Code is the closed, machine-readable issue taxonomy. Downstream systems
// branch on these values, never on message text.
type Code string

const (
	CodeMissingRequiredField  Code = "MISSING_REQUIRED_FIELD"
	CodeInvalidFieldFormat    Code = "INVALID_FIELD_FORMAT"
	CodeNoLineItems           Code = "NO_LINE_ITEMS"
	CodeLineMathMismatch      Code = "LINE_MATH_MISMATCH"
	CodeSubtotalMismatch      Code = "SUBTOTAL_MISMATCH"
	CodeTotalMismatch         Code = "TOTAL_MISMATCH"
	CodeInvalidAmount         Code = "INVALID_AMOUNT"
	CodeInactiveVendor        Code = "INACTIVE_VENDOR"
	CodeInvalidCurrency       Code = "INVALID_CURRENCY"
	CodePONotFound            Code = "PO_NOT_FOUND"
	CodePOAmountMismatch      Code = "PO_AMOUNT_MISMATCH"
	CodePOQuantityMismatch    Code = "PO_QUANTITY_MISMATCH"
	CodeGRNNotFound           Code = "GRN_NOT_FOUND"
	CodeGRNQuantityMismatch   Code = "GRN_QUANTITY_MISMATCH"
	CodeDuplicateInvoice      Code = "DUPLICATE_INVOICE"
	CodeExcessiveAmount       Code = "EXCESSIVE_AMOUNT"
	CodeOldInvoice            Code = "OLD_INVOICE"
	CodePaymentTermsViolation Code = "PAYMENT_TERMS_VIOLATION"
	CodeValidationError       Code = "VALIDATION_ERROR"
)

// autoResolvableCodes are issues an LLM field patch can plausibly fix
// without a human: extraction artifacts rather than genuine business
// problems.
var autoResolvableCodes = map[Code]bool{
	CodeMissingRequiredField: true,
	CodeInvalidFieldFormat:   true,
	CodeInvalidAmount:        true,
}

// policyCodes are business-policy findings (vendor policy and matching)
// that always demand a human look, regardless of scores.
var policyCodes = map[Code]bool{
	CodeInactiveVendor:        true,
	CodeInvalidCurrency:       true,
	CodePONotFound:            true,
	CodePOAmountMismatch:      true,
	CodePOQuantityMismatch:    true,
	CodeGRNNotFound:           true,
	CodeGRNQuantityMismatch:   true,
	CodeDuplicateInvoice:      true,
	CodePaymentTermsViolation: true,
}

// AutoResolvable reports whether issues with this code are eligible for
// the automatic LLM-patch path.
func (c Code) AutoResolvable() bool {
	return autoResolvableCodes[c]
}

// PolicyRelated reports whether this code represents a vendor-policy or
// matching finding.
func (c Code) PolicyRelated() bool {
	return policyCodes[c]
}

// ReasonCode tags one failure path inside a rule handler. The taxonomy
// mapper translates reason codes into (Code, Severity) pairs; reason codes
// never leave the validation engine.
type ReasonCode string

const (
	ReasonMissingField      ReasonCode = "missing_field"
	ReasonInvalidFormat     ReasonCode = "invalid_format"
	ReasonInvalidAmount     ReasonCode = "invalid_amount"
	ReasonNoLineItems       ReasonCode = "no_line_items"
	ReasonExcessiveLines    ReasonCode = "excessive_line_count"
	ReasonLineMathMismatch  ReasonCode = "line_math_mismatch"
	ReasonSubtotalMismatch  ReasonCode = "subtotal_mismatch"
	ReasonTotalMismatch     ReasonCode = "total_mismatch"
	ReasonTaxRateMismatch   ReasonCode = "tax_rate_mismatch"
	ReasonVendorNotFound    ReasonCode = "vendor_not_found"
	ReasonVendorInactive    ReasonCode = "vendor_inactive"
	ReasonCurrencyMismatch  ReasonCode = "currency_mismatch"
	ReasonPONotFound        ReasonCode = "po_not_found"
	ReasonPOAmountMismatch  ReasonCode = "po_amount_mismatch"
	// ReasonPOQtyMismatch has no emitting rule today: purchase order
	// records carry amounts only, so quantity matching happens against
	// goods receipts. It is kept so PO_QUANTITY_MISMATCH stays mapped.
	ReasonPOQtyMismatch     ReasonCode = "po_quantity_mismatch"
	ReasonGRNNotFound       ReasonCode = "grn_not_found"
	ReasonGRNQtyMismatch    ReasonCode = "grn_quantity_mismatch"
	ReasonDuplicateSuspect  ReasonCode = "duplicate_suspect"
	ReasonExcessiveAmount   ReasonCode = "excessive_amount"
	ReasonStaleInvoice      ReasonCode = "stale_invoice"
	ReasonTermsViolation    ReasonCode = "payment_terms_violation"
	ReasonSystemError       ReasonCode = "system_error"
)
