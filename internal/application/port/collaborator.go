// Package port defines the interfaces through which the engine reaches
// its external collaborators: extraction, LLM field patching, and the
// lookup stores consulted by business rules. Implementations live under
// internal/infrastructure; the engine depends only on these contracts.
package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/payables-ai/invoice-triage/internal/domain/document"
	"github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// Vendor is a vendor directory record.
type Vendor struct {
	ID           string
	Name         string
	Active       bool
	Currency     string
	TaxID        string
	CreditLimit  decimal.Decimal
	PaymentTerms string
}

// VendorDirectory looks up vendors by name. A nil vendor with a nil error
// means not found; errors are reserved for collaborator faults.
type VendorDirectory interface {
	FindByName(ctx context.Context, name string) (*Vendor, error)
}

// PurchaseOrder is a purchase-order record used for invoice matching.
type PurchaseOrder struct {
	Number   string
	VendorID string
	Amount   decimal.Decimal
	Currency string
	Status   string
}

// GoodsReceipt is one goods-receipt entry against a purchase order.
type GoodsReceipt struct {
	PONumber   string
	Quantity   decimal.Decimal
	ReceivedAt time.Time
}

// PurchaseOrderStore resolves purchase orders and their goods receipts.
// Nil PO with nil error means not found.
type PurchaseOrderStore interface {
	FindPO(ctx context.Context, poNumber string) (*PurchaseOrder, error)
	FindReceipts(ctx context.Context, poNumber string) ([]GoodsReceipt, error)
}

// PriorInvoice is a previously processed invoice candidate returned by
// duplicate search.
type PriorInvoice struct {
	ID            string
	VendorID      string
	InvoiceNumber string
	Total         decimal.Decimal
	SeenAt        time.Time
}

// InvoiceStore searches previously processed invoices for duplicates and
// records new ones once staged.
type InvoiceStore interface {
	// FindByVendorAndNumber returns candidates matching vendor and invoice
	// number, excluding excludeID when non-empty.
	FindByVendorAndNumber(ctx context.Context, vendorID, invoiceNumber, excludeID string) ([]PriorInvoice, error)

	// Record persists an invoice for future duplicate detection.
	Record(ctx context.Context, inv *PriorInvoice) error
}

// Extractor produces structured document data from a raw invoice file.
type Extractor interface {
	Extract(ctx context.Context, filePath string) (*document.DocumentData, error)
}

// FieldPatch is one proposed correction from the field patcher.
type FieldPatch struct {
	Field     string `json:"field"`
	Value     string `json:"value"`
	Rationale string `json:"rationale"`
}

// FieldPatcher proposes corrections for auto-resolvable issues. The
// workflow applies patches and re-validates; the patcher itself never
// mutates the document.
type FieldPatcher interface {
	ProposePatches(ctx context.Context, doc *document.DocumentData, issues []validation.Issue) ([]FieldPatch, error)
}
