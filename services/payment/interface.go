package payment

import (
	"context"
	"time"

	"afyalink/models"
	"afyalink/services/mpesa"
)

// Gateway is the slice of the Daraja client this service uses.
type Gateway interface {
	STKPush(ctx context.Context, params mpesa.PushParams) (*mpesa.STKPushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

// InitiateRequest is a client's request to start a push payment.
type InitiateRequest struct {
	InvoiceID string  `json:"invoiceId"`
	PatientID string  `json:"patientId"`
	Phone     string  `json:"phone"`
	Amount    float64 `json:"amount"`
}

// InitiateResult is the created payment plus the gateway's raw acknowledgment
// for immediate display ("check your phone").
type InitiateResult struct {
	Payment       *models.Payment        `json:"payment"`
	MpesaResponse *mpesa.STKPushResponse `json:"mpesaResponse"`
}

// Status is the poller's view of a payment.
type Status struct {
	PaymentID          string    `json:"paymentId"`
	Status             string    `json:"status"`
	MpesaReceiptNumber string    `json:"mpesaReceiptNumber,omitempty"`
	Amount             float64   `json:"amount"`
	TransactionDate    time.Time `json:"transactionDate,omitempty"`
}

// PaymentService is the payment reconciliation core: initiation, callback
// reconciliation, and status polling.
type PaymentService interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	HandleCallback(ctx context.Context, envelope mpesa.CallbackEnvelope) error
	GetStatus(ctx context.Context, paymentID string) (*Status, error)
	GetByID(ctx context.Context, paymentID string) (*models.Payment, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.Payment, error)

	// ReconcileStale resolves payments stuck in pending because their
	// callback never arrived, by querying the gateway directly.
	ReconcileStale(ctx context.Context, olderThan time.Time) error
}
