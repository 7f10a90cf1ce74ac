package validation

import (
	"fmt"
	"strings"

	"github.com/payables-ai/invoice-triage/internal/domain/document"
	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// checkRequiredFields verifies every configured required field is
// non-empty after trimming. One finding per missing field.
func (e *Executor) checkRequiredFields(rule domainval.Rule, doc *document.DocumentData) []domainval.Finding {
	var findings []domainval.Finding
	for _, name := range rule.Params.Strings(domainval.ParamRequiredFields) {
		value, known := doc.Header.Field(name)
		if !known {
			findings = append(findings, domainval.Finding{
				Reason:  domainval.ReasonMissingField,
				Message: fmt.Sprintf("unknown required field %q", name),
				Field:   name,
			})
			continue
		}
		if strings.TrimSpace(value) == "" {
			findings = append(findings, domainval.Finding{
				Reason:  domainval.ReasonMissingField,
				Message: fmt.Sprintf("required field %q is empty", name),
				Field:   name,
			})
		}
	}
	return findings
}

// monetaryFields are the header fields validated as decimals.
var monetaryFields = []string{document.FieldSubtotal, document.FieldTax, document.FieldTotal}

// dateFields are the header fields validated as dates.
var dateFields = []string{document.FieldInvoiceDate, document.FieldDueDate}

// checkFieldFormats validates dates against the accepted layouts and
// monetary fields as non-negative decimals. Empty fields are skipped here;
// presence is the required-fields rule's concern.
func (e *Executor) checkFieldFormats(doc *document.DocumentData) []domainval.Finding {
	var findings []domainval.Finding

	for _, name := range dateFields {
		value, _ := doc.Header.Field(name)
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := document.ParseDate(value); err != nil {
			findings = append(findings, domainval.Finding{
				Reason:  domainval.ReasonInvalidFormat,
				Message: fmt.Sprintf("field %q is not a recognized date", name),
				Field:   name,
				Actual:  value,
			})
		}
	}

	for _, name := range monetaryFields {
		value, _ := doc.Header.Field(name)
		if strings.TrimSpace(value) == "" {
			continue
		}
		amount, err := document.ParseAmount(value)
		if err != nil {
			findings = append(findings, domainval.Finding{
				Reason:  domainval.ReasonInvalidAmount,
				Message: fmt.Sprintf("field %q is not a valid monetary amount", name),
				Field:   name,
				Actual:  value,
			})
			continue
		}
		if amount.IsNegative() {
			findings = append(findings, domainval.Finding{
				Reason:  domainval.ReasonInvalidAmount,
				Message: fmt.Sprintf("field %q must not be negative", name),
				Field:   name,
				Actual:  value,
			})
		}
	}

	for i, line := range doc.Lines {
		for _, f := range []struct{ name, value string }{
			{"quantity", line.Quantity},
			{"unit_price", line.UnitPrice},
			{"amount", line.Amount},
		} {
			if strings.TrimSpace(f.value) == "" {
				continue
			}
			var err error
			if f.name == "quantity" {
				_, err = document.ParseQuantity(f.value)
			} else {
				_, err = document.ParseAmount(f.value)
			}
			if err != nil {
				findings = append(findings, domainval.Finding{
					Reason:  domainval.ReasonInvalidAmount,
					Message: fmt.Sprintf("line %d %s is not a valid number", i+1, f.name),
					Field:   f.name,
					Line:    i + 1,
					Actual:  f.value,
				})
			}
		}
	}

	return findings
}

// checkLinesPresent fails a document with zero line items.
func (e *Executor) checkLinesPresent(doc *document.DocumentData) []domainval.Finding {
	if len(doc.Lines) > 0 {
		return nil
	}
	return []domainval.Finding{{
		Reason:  domainval.ReasonNoLineItems,
		Message: "document has no line items",
	}}
}

// checkLineItemCount flags documents whose line count exceeds the
// configured maximum.
func (e *Executor) checkLineItemCount(rule domainval.Rule, doc *document.DocumentData) []domainval.Finding {
	max := rule.Params.Int(domainval.ParamMaxLineItems, 200)
	if len(doc.Lines) <= max {
		return nil
	}
	return []domainval.Finding{{
		Reason:   domainval.ReasonExcessiveLines,
		Message:  fmt.Sprintf("document has %d line items, maximum is %d", len(doc.Lines), max),
		Expected: fmt.Sprintf("<= %d", max),
		Actual:   fmt.Sprintf("%d", len(doc.Lines)),
	}}
}
