package payment

import (
	"context"
	"errors"
	"testing"

	"afyalink/models"
	"afyalink/services/mpesa"
)

func TestInitiateCreatesPendingPayment(t *testing.T) {
	svc, payments, _, _, invoiceID := newTestService(1500)

	result, err := svc.Initiate(context.Background(), InitiateRequest{
		InvoiceID: invoiceID,
		PatientID: "patient-1",
		Phone:     "254712345678",
		Amount:    1500,
	})
	if err != nil {
		t.Fatalf("Initiate returned error: %v", err)
	}

	if result.Payment.Status != models.PaymentStatusPending {
		t.Errorf("payment status = %q, want pending", result.Payment.Status)
	}
	if result.Payment.MerchantRequestID == "" || result.Payment.CheckoutRequestID == "" {
		t.Errorf("correlation ids not set: %+v", result.Payment)
	}
	if result.MpesaResponse.ResponseCode != "0" {
		t.Errorf("gateway ResponseCode = %q, want 0", result.MpesaResponse.ResponseCode)
	}

	stored, err := payments.GetByID(context.Background(), result.Payment.ID)
	if err != nil {
		t.Fatalf("stored payment not found: %v", err)
	}
	if stored.Status != models.PaymentStatusPending {
		t.Errorf("stored status = %q, want pending", stored.Status)
	}
	if stored.MerchantRequestID != result.Payment.MerchantRequestID {
		t.Errorf("stored merchant request id = %q, want %q", stored.MerchantRequestID, result.Payment.MerchantRequestID)
	}
}

func TestInitiateValidationPrecedesCreation(t *testing.T) {
	cases := []struct {
		name string
		req  InitiateRequest
	}{
		{"missing fields", InitiateRequest{PatientID: "patient-1", Phone: "254712345678", Amount: 100}},
		{"phone without country code", InitiateRequest{InvoiceID: "inv", PatientID: "patient-1", Phone: "0712345678", Amount: 100}},
		{"phone too long", InitiateRequest{InvoiceID: "inv", PatientID: "patient-1", Phone: "2547123456789", Amount: 100}},
		{"phone with letters", InitiateRequest{InvoiceID: "inv", PatientID: "patient-1", Phone: "25471234567a", Amount: 100}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, payments, _, gateway, _ := newTestService(1500)

			_, err := svc.Initiate(context.Background(), tc.req)

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if payments.count() != 0 {
				t.Errorf("payment rows created = %d, want 0", payments.count())
			}
			if gateway.pushCalls != 0 {
				t.Errorf("gateway called %d times on invalid input", gateway.pushCalls)
			}
		})
	}
}

func TestInitiateAmountAboveInvoiceTotal(t *testing.T) {
	svc, payments, _, _, invoiceID := newTestService(1500)

	_, err := svc.Initiate(context.Background(), InitiateRequest{
		InvoiceID: invoiceID,
		PatientID: "patient-1",
		Phone:     "254712345678",
		Amount:    2000,
	})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if payments.count() != 0 {
		t.Errorf("payment rows created = %d, want 0", payments.count())
	}
}

func TestInitiateUnknownInvoice(t *testing.T) {
	svc, payments, _, _, _ := newTestService(1500)

	_, err := svc.Initiate(context.Background(), InitiateRequest{
		InvoiceID: "no-such-invoice",
		PatientID: "patient-1",
		Phone:     "254712345678",
		Amount:    100,
	})

	var notFoundErr *NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
	if payments.count() != 0 {
		t.Errorf("payment rows created = %d, want 0", payments.count())
	}
}

func TestInitiateUnknownPatient(t *testing.T) {
	svc, _, _, _, invoiceID := newTestService(1500)

	_, err := svc.Initiate(context.Background(), InitiateRequest{
		InvoiceID: invoiceID,
		PatientID: "ghost",
		Phone:     "254712345678",
		Amount:    100,
	})

	var notFoundErr *NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
}

func TestInitiateGatewayFailureLeavesPendingRecord(t *testing.T) {
	svc, payments, _, gateway, invoiceID := newTestService(1500)
	gateway.STKPushFunc = func(ctx context.Context, params mpesa.PushParams) (*mpesa.STKPushResponse, error) {
		return nil, errors.New("connection refused")
	}

	_, err := svc.Initiate(context.Background(), InitiateRequest{
		InvoiceID: invoiceID,
		PatientID: "patient-1",
		Phone:     "254712345678",
		Amount:    1500,
	})

	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("error = %v, want GatewayError", err)
	}

	// Audit trail: the pending record must survive the failed initiation.
	if payments.count() != 1 {
		t.Fatalf("payment rows = %d, want 1", payments.count())
	}
	list, _ := payments.ListByPatient(context.Background(), "patient-1")
	if list[0].Status != models.PaymentStatusPending {
		t.Errorf("payment status = %q, want pending", list[0].Status)
	}
	if list[0].MerchantRequestID != "" {
		t.Errorf("merchant request id set despite gateway failure")
	}
}

func TestInitiatePaidInvoiceConflict(t *testing.T) {
	svc, payments, invoices, _, invoiceID := newTestService(1500)
	_ = invoices.UpdateStatus(context.Background(), invoiceID, models.InvoiceStatusPaid)

	_, err := svc.Initiate(context.Background(), InitiateRequest{
		InvoiceID: invoiceID,
		PatientID: "patient-1",
		Phone:     "254712345678",
		Amount:    1500,
	})

	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("error = %v, want ConflictError", err)
	}
	if payments.count() != 0 {
		t.Errorf("payment rows created = %d, want 0", payments.count())
	}
}
