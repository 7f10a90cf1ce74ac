package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
)

// PurchaseOrderRepository implements port.PurchaseOrderStore.
type PurchaseOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPurchaseOrderRepository creates a purchase order store backed by sqlite
func NewPurchaseOrderRepository(db *sql.DB, logger *zap.Logger) port.PurchaseOrderStore {
	return &PurchaseOrderRepository{
		db:     db,
		logger: logger,
	}
}

// FindPO resolves a purchase order by number. Returns nil, nil when the
// number is unknown.
func (r *PurchaseOrderRepository) FindPO(ctx context.Context, poNumber string) (*port.PurchaseOrder, error) {
	query := `
		SELECT number, vendor_id, amount, currency, status
		FROM purchase_orders
		WHERE number = ?
	`

	var po port.PurchaseOrder
	var amount string

	err := r.db.QueryRowContext(ctx, query, poNumber).Scan(
		&po.Number,
		&po.VendorID,
		&amount,
		&po.Currency,
		&po.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to look up purchase order",
			zap.String("po_number", poNumber), zap.Error(err))
		return nil, fmt.Errorf("failed to look up purchase order: %w", err)
	}

	if amount != "" {
		amt, pErr := decimal.NewFromString(amount)
		if pErr != nil {
			return nil, fmt.Errorf("invalid amount for PO %s: %w", po.Number, pErr)
		}
		po.Amount = amt
	}
	return &po, nil
}

// FindReceipts returns the goods receipts recorded against a purchase order.
func (r *PurchaseOrderRepository) FindReceipts(ctx context.Context, poNumber string) ([]port.GoodsReceipt, error) {
	query := `
		SELECT po_number, quantity, received_at
		FROM goods_receipts
		WHERE po_number = ?
		ORDER BY received_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, poNumber)
	if err != nil {
		r.logger.Error("Failed to query goods receipts",
			zap.String("po_number", poNumber), zap.Error(err))
		return nil, fmt.Errorf("failed to query goods receipts: %w", err)
	}
	defer rows.Close()

	var receipts []port.GoodsReceipt
	for rows.Next() {
		var gr port.GoodsReceipt
		var quantity string

		if err := rows.Scan(&gr.PONumber, &quantity, &gr.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goods receipt: %w", err)
		}
		qty, pErr := decimal.NewFromString(quantity)
		if pErr != nil {
			return nil, fmt.Errorf("invalid quantity on receipt for PO %s: %w", poNumber, pErr)
		}
		gr.Quantity = qty
		receipts = append(receipts, gr)
	}
	return receipts, rows.Err()
}

// Verify interface compliance
var _ port.PurchaseOrderStore = (*PurchaseOrderRepository)(nil)
