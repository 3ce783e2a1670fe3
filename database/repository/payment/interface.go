package paymentRepo

import (
	"context"
	"errors"
	"time"

	"afyalink/models"
)

// ErrNotPending is returned by the conditional terminal-state writes when the
// payment exists but is no longer pending. Callers treat it as a duplicate or
// raced delivery, never as a reason to retry the write.
var ErrNotPending = errors.New("payment is not pending")

// GatewayAck carries the gateway's synchronous STK push acknowledgment.
type GatewayAck struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

// CompletionFields holds the values extracted from a successful callback.
type CompletionFields struct {
	MpesaReceiptNumber  string
	Phone               string
	TransactionDate     time.Time
	ResponseDescription string
}

// PaymentRepository is the storage boundary for payment records.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByCorrelationIDs(ctx context.Context, merchantRequestID, checkoutRequestID string) (*models.Payment, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.Payment, error)

	// AttachGatewayAck stores the correlation identifiers and response fields
	// returned by the STK push call. The correlation pair is written once and
	// never modified afterwards.
	AttachGatewayAck(ctx context.Context, id string, ack GatewayAck) error

	// CompleteWithInvoice transitions a pending payment to completed and its
	// invoice to paid as one logical unit. The payment write is conditional on
	// status still being "pending"; a lost race returns ErrNotPending and the
	// invoice is left untouched.
	CompleteWithInvoice(ctx context.Context, paymentID, invoiceID string, fields CompletionFields) error

	// MarkFailed transitions a pending payment to failed. Conditional on the
	// payment still being pending; returns ErrNotPending otherwise.
	MarkFailed(ctx context.Context, id, description string) error

	// ListStalePending returns payments still pending whose initiation is
	// older than the cutoff. Used by the reconciliation sweep.
	ListStalePending(ctx context.Context, olderThan time.Time) ([]models.Payment, error)
}
