package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
)

// VendorRepository implements port.VendorDirectory over the vendors table.
type VendorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVendorRepository creates a new vendor directory backed by sqlite
func NewVendorRepository(db *sql.DB, logger *zap.Logger) port.VendorDirectory {
	return &VendorRepository{
		db:     db,
		logger: logger,
	}
}

// FindByName looks up a vendor by name, case-insensitively. Returns
// nil, nil when the vendor is unknown.
func (r *VendorRepository) FindByName(ctx context.Context, name string) (*port.Vendor, error) {
	query := `
		SELECT id, name, active, currency, tax_id, credit_limit, payment_terms
		FROM vendors
		WHERE name = ? COLLATE NOCASE
		LIMIT 1
	`

	var v port.Vendor
	var creditLimit string

	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&v.ID,
		&v.Name,
		&v.Active,
		&v.Currency,
		&v.TaxID,
		&creditLimit,
		&v.PaymentTerms,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to look up vendor", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to look up vendor: %w", err)
	}

	if creditLimit != "" {
		limit, pErr := decimal.NewFromString(creditLimit)
		if pErr != nil {
			return nil, fmt.Errorf("invalid credit limit for vendor %s: %w", v.ID, pErr)
		}
		v.CreditLimit = limit
	}
	return &v, nil
}

// Verify interface compliance
var _ port.VendorDirectory = (*VendorRepository)(nil)
