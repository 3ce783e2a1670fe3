package payment

import (
	"context"
	"errors"
	"fmt"

	"afyalink/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// GetStatus returns the current state of a payment by its application ID.
// Pure read: "pending" means the callback has not arrived yet, and callers
// are expected to poll with backoff.
func (s *DefaultPaymentService) GetStatus(ctx context.Context, paymentID string) (*Status, error) {
	pay, err := s.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return &Status{
		PaymentID:          pay.ID,
		Status:             pay.Status,
		MpesaReceiptNumber: pay.MpesaReceiptNumber,
		Amount:             pay.Amount,
		TransactionDate:    pay.TransactionDate,
	}, nil
}

// GetByID returns the full payment record.
func (s *DefaultPaymentService) GetByID(ctx context.Context, paymentID string) (*models.Payment, error) {
	pay, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{Resource: "payment"}
		}
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return pay, nil
}

// ListByPatient returns a patient's payments, newest first.
func (s *DefaultPaymentService) ListByPatient(ctx context.Context, patientID string) ([]models.Payment, error) {
	payments, err := s.Payments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patient payments: %w", err)
	}
	return payments, nil
}
