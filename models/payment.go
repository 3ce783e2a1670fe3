package models

import "time"

// Payment statuses. "cancelled" is part of the stored enum but no code path
// produces it: a user rejecting the STK prompt on their phone arrives as a
// failure callback, not a cancellation.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

// PaymentMethodMpesa is the only method the push-payment flow produces.
const PaymentMethodMpesa = "mpesa"

// Payment represents one attempted M-Pesa transaction against an invoice.
//
// MerchantRequestID and CheckoutRequestID are assigned by the gateway when the
// STK push is accepted and are immutable afterwards. They are the only key a
// callback carries, so they are the only way to find the originating payment.
type Payment struct {
	ID        string  `bson:"id" json:"id"`
	InvoiceID string  `bson:"invoice_id" json:"invoiceId"`
	PatientID string  `bson:"patient_id" json:"patientId"`
	Amount    float64 `bson:"amount" json:"amount"`
	Phone     string  `bson:"phone" json:"phone"`
	Method    string  `bson:"method" json:"method"`
	Status    string  `bson:"status" json:"status"`

	MerchantRequestID  string `bson:"merchant_request_id,omitempty" json:"merchantRequestId,omitempty"`
	CheckoutRequestID  string `bson:"checkout_request_id,omitempty" json:"checkoutRequestId,omitempty"`
	MpesaReceiptNumber string `bson:"mpesa_receipt_number,omitempty" json:"mpesaReceiptNumber,omitempty"`

	ResponseCode        string    `bson:"response_code,omitempty" json:"responseCode,omitempty"`
	ResponseDescription string    `bson:"response_description,omitempty" json:"responseDescription,omitempty"`
	CustomerMessage     string    `bson:"customer_message,omitempty" json:"customerMessage,omitempty"`
	TransactionDate     time.Time `bson:"transaction_date,omitempty" json:"transactionDate,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsTerminal reports whether the payment has reached a state that must never
// be overwritten by a later or duplicate callback.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	default:
		return false
	}
}
