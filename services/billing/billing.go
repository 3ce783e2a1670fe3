package billing

import (
	"context"
	"errors"
	"fmt"

	invoiceRepo "afyalink/database/repository/invoice"
	patientRepo "afyalink/database/repository/patient"
	"afyalink/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CreateInvoiceRequest is a billing staff request to raise an invoice.
type CreateInvoiceRequest struct {
	PatientID     string               `json:"patientId"`
	AppointmentID string               `json:"appointmentId,omitempty"`
	Items         []models.InvoiceItem `json:"items"`
}

// BillingService manages invoices. Settlement ("paid") is the payment
// reconciler's alone; this service only moves invoices between pending and
// canceled.
type BillingService interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (*models.Invoice, error)
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.Invoice, error)
	ListAll(ctx context.Context) ([]models.Invoice, error)
	UpdateItems(ctx context.Context, id string, items []models.InvoiceItem) (*models.Invoice, error)
	Cancel(ctx context.Context, id string) error
}

// DefaultBillingService implements BillingService.
type DefaultBillingService struct {
	Invoices invoiceRepo.InvoiceRepository
	Patients patientRepo.PatientRepository
	Logger   *zap.Logger
}

// Create raises a pending invoice for a patient. The total is computed
// server-side from the line items.
func (s *DefaultBillingService) Create(ctx context.Context, req CreateInvoiceRequest) (*models.Invoice, error) {
	if req.PatientID == "" || len(req.Items) == 0 {
		return nil, &ValidationError{Message: "patient and items are required"}
	}
	for _, item := range req.Items {
		if item.Name == "" || item.Price <= 0 {
			return nil, &ValidationError{Message: "each item needs a name and a positive price"}
		}
	}

	if _, err := s.Patients.GetByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{Resource: "patient"}
		}
		return nil, fmt.Errorf("failed to fetch patient: %w", err)
	}

	invoice := &models.Invoice{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Items:         req.Items,
		Status:        models.InvoiceStatusPending,
	}
	if err := s.Invoices.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.Logger.Info("invoice created",
		zap.String("invoiceId", invoice.ID),
		zap.String("patientId", invoice.PatientID),
		zap.Float64("total", invoice.Total))
	return invoice, nil
}

// GetByID returns an invoice.
func (s *DefaultBillingService) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	invoice, err := s.Invoices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{Resource: "invoice"}
		}
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	return invoice, nil
}

// ListByPatient returns a patient's invoices, newest first.
func (s *DefaultBillingService) ListByPatient(ctx context.Context, patientID string) ([]models.Invoice, error) {
	invoices, err := s.Invoices.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patient invoices: %w", err)
	}
	return invoices, nil
}

// ListAll returns every invoice, newest first.
func (s *DefaultBillingService) ListAll(ctx context.Context) ([]models.Invoice, error) {
	invoices, err := s.Invoices.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	return invoices, nil
}

// UpdateItems replaces the line items of a pending invoice; the total is
// recomputed in the same write.
func (s *DefaultBillingService) UpdateItems(ctx context.Context, id string, items []models.InvoiceItem) (*models.Invoice, error) {
	if len(items) == 0 {
		return nil, &ValidationError{Message: "items are required"}
	}
	for _, item := range items {
		if item.Name == "" || item.Price <= 0 {
			return nil, &ValidationError{Message: "each item needs a name and a positive price"}
		}
	}

	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusPending {
		return nil, &ConflictError{Message: fmt.Sprintf("cannot edit a %s invoice", invoice.Status)}
	}

	updated, err := s.Invoices.UpdateItems(ctx, id, items)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice items: %w", err)
	}
	return updated, nil
}

// Cancel marks a pending invoice canceled. Invoices are never hard-deleted:
// payments may reference them.
func (s *DefaultBillingService) Cancel(ctx context.Context, id string) error {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return &ConflictError{Message: "cannot cancel a paid invoice"}
	}
	if invoice.Status == models.InvoiceStatusCanceled {
		return nil
	}

	if err := s.Invoices.UpdateStatus(ctx, id, models.InvoiceStatusCanceled); err != nil {
		return fmt.Errorf("failed to cancel invoice: %w", err)
	}
	s.Logger.Info("invoice canceled", zap.String("invoiceId", id))
	return nil
}
