package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payables-ai/invoice-triage/internal/domain/document"
	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

func mathRule(id domainval.RuleID) domainval.Rule {
	return domainval.Rule{
		ID:     id,
		Params: domainval.Params{domainval.ParamTolerance: 0.01},
	}
}

func TestCheckLineMath(t *testing.T) {
	e := newTestExecutor()
	ctx := context.Background()
	rule := mathRule(domainval.RuleLineMath)

	t.Run("exact product passes", func(t *testing.T) {
		doc := cleanDocument()
		doc.Lines = []document.LineItem{
			{Quantity: "3", UnitPrice: "11.11", Amount: "33.33"},
		}
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Passed)
	})

	t.Run("mismatch beyond tolerance fails", func(t *testing.T) {
		doc := cleanDocument()
		doc.Lines = []document.LineItem{
			{Quantity: "3", UnitPrice: "11.11", Amount: "33.35"},
		}
		res := e.Execute(ctx, rule, doc)
		require.Len(t, res.Findings, 1)
		f := res.Findings[0]
		assert.Equal(t, domainval.ReasonLineMathMismatch, f.Reason)
		assert.Equal(t, 1, f.Line)
		assert.Equal(t, "33.33", f.Expected)
		assert.Equal(t, "33.35", f.Actual)
	})

	t.Run("one cent off is within tolerance", func(t *testing.T) {
		doc := cleanDocument()
		doc.Lines = []document.LineItem{
			{Quantity: "3", UnitPrice: "11.11", Amount: "33.34"},
		}
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Passed)
	})

	t.Run("unparseable lines are not math findings", func(t *testing.T) {
		doc := cleanDocument()
		doc.Lines = []document.LineItem{
			{Quantity: "a few", UnitPrice: "11.11", Amount: "33.33"},
			{Quantity: "2", UnitPrice: "5.00", Amount: "10.00"},
		}
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Passed)
	})

	t.Run("one finding per bad line", func(t *testing.T) {
		doc := cleanDocument()
		doc.Lines = []document.LineItem{
			{Quantity: "2", UnitPrice: "10.00", Amount: "25.00"},
			{Quantity: "1", UnitPrice: "4.00", Amount: "4.00"},
			{Quantity: "5", UnitPrice: "2.00", Amount: "11.00"},
		}
		res := e.Execute(ctx, rule, doc)
		require.Len(t, res.Findings, 2)
		assert.Equal(t, 1, res.Findings[0].Line)
		assert.Equal(t, 3, res.Findings[1].Line)
	})
}

func TestCheckSubtotal(t *testing.T) {
	e := newTestExecutor()
	ctx := context.Background()
	rule := mathRule(domainval.RuleSubtotalMatch)

	t.Run("sum matches stated subtotal", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Subtotal = "30.00"
		doc.Lines = []document.LineItem{
			{Amount: "$12.50"},
			{Amount: "17.50"},
		}
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Passed)
		assert.False(t, res.Skipped)
	})

	t.Run("mismatch fails with both sides reported", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Subtotal = "31.00"
		doc.Lines = []document.LineItem{
			{Amount: "12.50"},
			{Amount: "17.50"},
		}
		res := e.Execute(ctx, rule, doc)
		require.Len(t, res.Findings, 1)
		f := res.Findings[0]
		assert.Equal(t, domainval.ReasonSubtotalMismatch, f.Reason)
		assert.Equal(t, "30", f.Expected)
		assert.Equal(t, "31", f.Actual)
	})

	t.Run("absent subtotal is skipped, not failed", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Subtotal = ""
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Passed)
		assert.True(t, res.Skipped)
	})

	t.Run("no parseable line amounts is skipped", func(t *testing.T) {
		doc := cleanDocument()
		doc.Lines = []document.LineItem{{Amount: "tbd"}}
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Skipped)
	})
}

func TestCheckTotal(t *testing.T) {
	e := newTestExecutor()
	ctx := context.Background()
	rule := mathRule(domainval.RuleTotalMatch)

	t.Run("subtotal plus tax equals total", func(t *testing.T) {
		res := e.Execute(ctx, rule, cleanDocument())
		assert.True(t, res.Passed)
		assert.False(t, res.Skipped)
	})

	t.Run("missing tax treated as zero", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Tax = ""
		doc.Header.Total = "100.00"
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Passed)
		assert.False(t, res.Skipped)
	})

	t.Run("mismatch fails", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Total = "115.00"
		res := e.Execute(ctx, rule, doc)
		require.Len(t, res.Findings, 1)
		f := res.Findings[0]
		assert.Equal(t, domainval.ReasonTotalMismatch, f.Reason)
		assert.Equal(t, "110", f.Expected)
		assert.Equal(t, "115", f.Actual)
	})

	t.Run("unparseable total is skipped", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Total = "??"
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Skipped)
	})
}

func TestCheckTaxRate(t *testing.T) {
	e := newTestExecutor()
	ctx := context.Background()
	rule := domainval.Rule{
		ID: domainval.RuleTaxRate,
		Params: domainval.Params{
			domainval.ParamTolerance: 0.01,
			domainval.ParamTaxRates:  []float64{0, 5, 10, 20},
		},
	}

	t.Run("advertised rate passes", func(t *testing.T) {
		doc := cleanDocument() // 10.00 tax on 100.00 subtotal
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Passed)
		assert.False(t, res.Skipped)
	})

	t.Run("unadvertised rate warned with actual percentage", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Tax = "7.00"
		res := e.Execute(ctx, rule, doc)
		require.Len(t, res.Findings, 1)
		f := res.Findings[0]
		assert.Equal(t, domainval.ReasonTaxRateMismatch, f.Reason)
		assert.Equal(t, "7%", f.Actual)
	})

	t.Run("zero subtotal is skipped", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Subtotal = "0"
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Skipped)
	})

	t.Run("absent tax is skipped", func(t *testing.T) {
		doc := cleanDocument()
		doc.Header.Tax = ""
		res := e.Execute(ctx, rule, doc)
		assert.True(t, res.Skipped)
	})
}
