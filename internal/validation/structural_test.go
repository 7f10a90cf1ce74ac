package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/domain/document"
	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// newTestExecutor builds an executor with no business collaborators, which
// is enough for structural and mathematical rules.
func newTestExecutor() *Executor {
	return NewExecutor(Lookups{}, 0, zap.NewNop())
}

func cleanDocument() *document.DocumentData {
	return &document.DocumentData{
		Header: document.Header{
			VendorName:    "Acme Corp",
			InvoiceNumber: "INV-1001",
			InvoiceDate:   "2026-08-01",
			DueDate:       "2026-08-31",
			Currency:      "USD",
			Subtotal:      "100.00",
			Tax:           "10.00",
			Total:         "110.00",
		},
		Lines: []document.LineItem{
			{Description: "Widget", Quantity: "4", UnitPrice: "25.00", Amount: "100.00"},
		},
		Confidence: document.Confidence{Overall: 0.95},
	}
}

func requiredFieldsRule(fields ...string) domainval.Rule {
	return domainval.Rule{
		ID:     domainval.RuleRequiredFields,
		Params: domainval.Params{domainval.ParamRequiredFields: fields},
	}
}

func TestCheckRequiredFields(t *testing.T) {
	e := newTestExecutor()
	ctx := context.Background()

	t.Run("all present passes", func(t *testing.T) {
		res := e.Execute(ctx, requiredFieldsRule("vendor_name", "invoice_number", "total"), cleanDocument())
		assert.True(t, res.Passed)
		assert.Empty(t, res.Findings)
	})

	t.Run("one finding per missing field", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.InvoiceNumber = ""
		doc.Header.Total = "  "

		res := e.Execute(ctx, requiredFieldsRule("vendor_name", "invoice_number", "total"), doc)
		require.False(t, res.Passed)
		require.Len(t, res.Findings, 2)

		fields := []string{res.Findings[0].Field, res.Findings[1].Field}
		assert.ElementsMatch(t, []string{"invoice_number", "total"}, fields)
		for _, f := range res.Findings {
			assert.Equal(t, domainval.ReasonMissingField, f.Reason)
		}
	})

	t.Run("unknown field name reported as missing", func(t *testing.T) {
		res := e.Execute(ctx, requiredFieldsRule("shipping_cost"), cleanDocument())
		require.Len(t, res.Findings, 1)
		assert.Equal(t, domainval.ReasonMissingField, res.Findings[0].Reason)
		assert.Equal(t, "shipping_cost", res.Findings[0].Field)
	})
}

func TestCheckFieldFormats(t *testing.T) {
	e := newTestExecutor()
	ctx := context.Background()
	rule := domainval.Rule{ID: domainval.RuleFieldFormats}

	t.Run("clean document passes", func(t *testing.T) {
		res := e.Execute(ctx, rule, cleanDocument())
		assert.True(t, res.Passed)
	})

	t.Run("unrecognized date flagged", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.InvoiceDate = "someday soon"

		res := e.Execute(ctx, rule, doc)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, domainval.ReasonInvalidFormat, res.Findings[0].Reason)
		assert.Equal(t, document.FieldInvoiceDate, res.Findings[0].Field)
	})

	t.Run("unparseable monetary field flagged", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Total = "ten dollars"

		res := e.Execute(ctx, rule, doc)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, domainval.ReasonInvalidAmount, res.Findings[0].Reason)
		assert.Equal(t, document.FieldTotal, res.Findings[0].Field)
	})

	t.Run("negative amount flagged", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Subtotal = "(100.00)"

		res := e.Execute(ctx, rule, doc)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, domainval.ReasonInvalidAmount, res.Findings[0].Reason)
		assert.Equal(t, document.FieldSubtotal, res.Findings[0].Field)
	})

	t.Run("empty fields are not format errors", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.DueDate = ""
		doc.Header.Tax = ""

		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Passed)
	})

	t.Run("bad line values flagged with line numbers", func(t *testing.T) {
		doc := cleanDocument()
		doc.Lines = append(doc.Lines, document.LineItem{
			Description: "Gadget", Quantity: "a few", UnitPrice: "5.00", Amount: "n/a",
		})

		res := e.Execute(ctx, rule, doc)
		require.Len(t, res.Findings, 2)
		for _, f := range res.Findings {
			assert.Equal(t, domainval.ReasonInvalidAmount, f.Reason)
			assert.Equal(t, 2, f.Line)
		}
	})
}

func TestCheckLinesPresent(t *testing.T) {
	e := newTestExecutor()
	ctx := context.Background()
	rule := domainval.Rule{ID: domainval.RuleLinesPresent}

	res := e.Execute(ctx, rule, cleanDocument())
	assert.True(t, res.Passed)

	doc := cleanDocument()
	doc.Lines = nil
	res = e.Execute(ctx, rule, doc)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, domainval.ReasonNoLineItems, res.Findings[0].Reason)
}

func TestCheckLineItemCount(t *testing.T) {
	e := newTestExecutor()
	ctx := context.Background()
	rule := domainval.Rule{
		ID:     domainval.RuleLineItemCount,
		Params: domainval.Params{domainval.ParamMaxLineItems: 3},
	}

	doc := cleanDocument()
	doc.Lines = make([]document.LineItem, 3)
	res := e.Execute(ctx, rule, doc)
	assert.True(t, res.Passed, "count at the maximum is allowed")

	doc.Lines = make([]document.LineItem, 4)
	res = e.Execute(ctx, rule, doc)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, domainval.ReasonExcessiveLines, res.Findings[0].Reason)
	assert.Equal(t, "4", res.Findings[0].Actual)
}

func TestExecute_UnknownRuleYieldsSystemError(t *testing.T) {
	e := newTestExecutor()
	res := e.Execute(context.Background(), domainval.Rule{ID: "made_up_rule"}, cleanDocument())
	assert.False(t, res.Passed)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, domainval.ReasonSystemError, res.Findings[0].Reason)
}
