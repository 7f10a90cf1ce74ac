package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
)

// InvoiceRepository implements port.InvoiceStore over the invoices table,
// which holds previously processed invoices for duplicate detection.
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates an invoice store backed by sqlite
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceStore {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// FindByVendorAndNumber returns prior invoices matching vendor and invoice
// number, excluding excludeID when non-empty.
func (r *InvoiceRepository) FindByVendorAndNumber(ctx context.Context, vendorID, invoiceNumber, excludeID string) ([]port.PriorInvoice, error) {
	query := `
		SELECT id, vendor_id, invoice_number, total, seen_at
		FROM invoices
		WHERE vendor_id = ? AND invoice_number = ?
	`
	args := []interface{}{vendorID, invoiceNumber}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query prior invoices",
			zap.String("vendor_id", vendorID),
			zap.String("invoice_number", invoiceNumber),
			zap.Error(err))
		return nil, fmt.Errorf("failed to query prior invoices: %w", err)
	}
	defer rows.Close()

	var invoices []port.PriorInvoice
	for rows.Next() {
		var inv port.PriorInvoice
		var total string

		if err := rows.Scan(&inv.ID, &inv.VendorID, &inv.InvoiceNumber, &total, &inv.SeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan prior invoice: %w", err)
		}
		if total != "" {
			t, pErr := decimal.NewFromString(total)
			if pErr != nil {
				return nil, fmt.Errorf("invalid total on prior invoice %s: %w", inv.ID, pErr)
			}
			inv.Total = t
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// Record persists an invoice for future duplicate detection. Re-recording
// the same ID is a no-op.
func (r *InvoiceRepository) Record(ctx context.Context, inv *port.PriorInvoice) error {
	query := `
		INSERT OR IGNORE INTO invoices (id, vendor_id, invoice_number, total, seen_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		inv.ID,
		inv.VendorID,
		inv.InvoiceNumber,
		inv.Total.String(),
		inv.SeenAt,
	)
	if err != nil {
		r.logger.Error("Failed to record invoice", zap.String("id", inv.ID), zap.Error(err))
		return fmt.Errorf("failed to record invoice: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.InvoiceStore = (*InvoiceRepository)(nil)
