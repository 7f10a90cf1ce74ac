// Package document defines the extracted-invoice input model consumed by
// the validation engine. All values arrive as raw text from the extraction
// layer; parsing into decimals and dates happens at rule-evaluation time so
// that malformed fields surface as validation findings, not errors.
package document

// Canonical header field names. Rule parameters and per-field confidence
// scores refer to fields by these names.
const (
	FieldVendorName    = "vendor_name"
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldDueDate       = "due_date"
	FieldCurrency      = "currency"
	FieldPONumber      = "po_number"
	FieldPaymentTerms  = "payment_terms"
	FieldSubtotal      = "subtotal"
	FieldTax           = "tax"
	FieldTotal         = "total"
)

// Header holds the extracted header-level fields of one invoice.
type Header struct {
	VendorName    string `json:"vendor_name"`
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	DueDate       string `json:"due_date"`
	Currency      string `json:"currency"`
	PONumber      string `json:"po_number"`
	PaymentTerms  string `json:"payment_terms"`
	Subtotal      string `json:"subtotal"`
	Tax           string `json:"tax"`
	Total         string `json:"total"`
}

// Field returns the header value for a canonical field name.
func (h Header) Field(name string) (string, bool) {
	switch name {
	case FieldVendorName:
		return h.VendorName, true
	case FieldInvoiceNumber:
		return h.InvoiceNumber, true
	case FieldInvoiceDate:
		return h.InvoiceDate, true
	case FieldDueDate:
		return h.DueDate, true
	case FieldCurrency:
		return h.Currency, true
	case FieldPONumber:
		return h.PONumber, true
	case FieldPaymentTerms:
		return h.PaymentTerms, true
	case FieldSubtotal:
		return h.Subtotal, true
	case FieldTax:
		return h.Tax, true
	case FieldTotal:
		return h.Total, true
	}
	return "", false
}

// SetField overwrites a header field by canonical name. Used when applying
// human corrections or LLM field patches before re-validation.
func (h *Header) SetField(name, value string) bool {
	switch name {
	case FieldVendorName:
		h.VendorName = value
	case FieldInvoiceNumber:
		h.InvoiceNumber = value
	case FieldInvoiceDate:
		h.InvoiceDate = value
	case FieldDueDate:
		h.DueDate = value
	case FieldCurrency:
		h.Currency = value
	case FieldPONumber:
		h.PONumber = value
	case FieldPaymentTerms:
		h.PaymentTerms = value
	case FieldSubtotal:
		h.Subtotal = value
	case FieldTax:
		h.Tax = value
	case FieldTotal:
		h.Total = value
	default:
		return false
	}
	return true
}

// LineItem is one invoice line as extracted.
type LineItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

// Confidence carries the extraction layer's self-assessment.
type Confidence struct {
	Overall float64            `json:"overall"`
	Fields  map[string]float64 `json:"fields,omitempty"`
}

// DocumentData is the read-only input to one validation attempt.
type DocumentData struct {
	// SourceID identifies the invoice record this document was extracted
	// from, so duplicate detection can exclude the invoice itself.
	SourceID   string     `json:"source_id,omitempty"`
	Header     Header     `json:"header"`
	Lines      []LineItem `json:"lines"`
	Confidence Confidence `json:"confidence"`
}
