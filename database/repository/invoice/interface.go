package invoiceRepo

import (
	"context"

	"afyalink/models"
)

// InvoiceRepository is the storage boundary for invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.Invoice, error)
	ListAll(ctx context.Context) ([]models.Invoice, error)

	// UpdateItems replaces the line items of a pending invoice and rewrites
	// the recomputed total in the same update.
	UpdateItems(ctx context.Context, id string, items []models.InvoiceItem) (*models.Invoice, error)

	// UpdateStatus writes the invoice status. "paid" is reserved for the
	// payment reconciler.
	UpdateStatus(ctx context.Context, id, status string) error
}
