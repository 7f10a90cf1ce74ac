// Package export stages approved invoices as payment-proposal workbooks.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
	"github.com/payables-ai/invoice-triage/internal/domain/document"
	"github.com/payables-ai/invoice-triage/internal/domain/entity"
	"github.com/payables-ai/invoice-triage/internal/workflow"
)

// ProposalWriter implements workflow.Stager. Each staged instance becomes
// one payment-proposal workbook in the output directory, and the invoice
// is recorded for future duplicate detection.
type ProposalWriter struct {
	outputDir string
	vendors   port.VendorDirectory
	invoices  port.InvoiceStore
	logger    *zap.Logger
}

// NewProposalWriter creates a new payment proposal writer
func NewProposalWriter(outputDir string, vendors port.VendorDirectory, invoices port.InvoiceStore, logger *zap.Logger) *ProposalWriter {
	return &ProposalWriter{
		outputDir: outputDir,
		vendors:   vendors,
		invoices:  invoices,
		logger:    logger,
	}
}

const proposalSheet = "Payment Proposal"

// Stage writes the workbook and records the invoice. The instance must
// carry a document snapshot and a validation result.
func (w *ProposalWriter) Stage(ctx context.Context, inst *entity.WorkflowInstance) error {
	if inst.Document == nil {
		return fmt.Errorf("instance %s has no document snapshot", inst.ID)
	}
	if inst.Result == nil {
		return fmt.Errorf("instance %s has no validation result", inst.ID)
	}

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(w.outputDir, fmt.Sprintf("proposal_%s.xlsx", inst.ID))
	if err := w.writeWorkbook(inst, outputPath); err != nil {
		return err
	}

	if err := w.recordInvoice(ctx, inst); err != nil {
		return err
	}

	w.logger.Info("Invoice staged for payment",
		zap.String("instance_id", inst.ID),
		zap.String("output_path", outputPath))
	return nil
}

func (w *ProposalWriter) writeWorkbook(inst *entity.WorkflowInstance, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(proposalSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		w.logger.Warn("Failed to remove default sheet", zap.Error(err))
	}

	header := inst.Document.Header
	w.setCell(f, "A1", "Vendor")
	w.setCell(f, "B1", header.VendorName)
	w.setCell(f, "A2", "Invoice Number")
	w.setCell(f, "B2", header.InvoiceNumber)
	w.setCell(f, "A3", "Invoice Date")
	w.setCell(f, "B3", header.InvoiceDate)
	w.setCell(f, "A4", "Due Date")
	w.setCell(f, "B4", header.DueDate)
	w.setCell(f, "A5", "Currency")
	w.setCell(f, "B5", header.Currency)
	w.setCell(f, "A6", "PO Number")
	w.setCell(f, "B6", header.PONumber)
	w.setCell(f, "A7", "Payment Terms")
	w.setCell(f, "B7", header.PaymentTerms)
	w.setCell(f, "A8", "Total")
	w.setCell(f, "B8", header.Total)

	w.setCell(f, "A10", "Confidence Score")
	w.setCell(f, "B10", fmt.Sprintf("%.3f", inst.Result.ConfidenceScore))
	w.setCell(f, "A11", "Outcome")
	w.setCell(f, "B11", inst.Outcome)
	w.setCell(f, "A12", "Staged At")
	w.setCell(f, "B12", time.Now().Format("2006-01-02 15:04:05"))

	// Line item table
	w.setCell(f, "A14", "Description")
	w.setCell(f, "B14", "Quantity")
	w.setCell(f, "C14", "Unit Price")
	w.setCell(f, "D14", "Amount")
	for i, line := range inst.Document.Lines {
		row := 15 + i
		w.setCell(f, fmt.Sprintf("A%d", row), line.Description)
		w.setCell(f, fmt.Sprintf("B%d", row), line.Quantity)
		w.setCell(f, fmt.Sprintf("C%d", row), line.UnitPrice)
		w.setCell(f, fmt.Sprintf("D%d", row), line.Amount)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// recordInvoice persists the staged invoice so later submissions of the
// same vendor and number are flagged as duplicates.
func (w *ProposalWriter) recordInvoice(ctx context.Context, inst *entity.WorkflowInstance) error {
	header := inst.Document.Header

	vendor, err := w.vendors.FindByName(ctx, header.VendorName)
	if err != nil {
		return fmt.Errorf("failed to resolve vendor for record: %w", err)
	}
	vendorID := ""
	if vendor != nil {
		vendorID = vendor.ID
	}

	total := decimal.Zero
	if t, err := document.ParseAmount(header.Total); err == nil {
		total = t
	}

	if err := w.invoices.Record(ctx, &port.PriorInvoice{
		ID:            inst.ID,
		VendorID:      vendorID,
		InvoiceNumber: header.InvoiceNumber,
		Total:         total,
		SeenAt:        time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to record staged invoice: %w", err)
	}
	return nil
}

func (w *ProposalWriter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(proposalSheet, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

// Verify interface compliance
var _ workflow.Stager = (*ProposalWriter)(nil)
