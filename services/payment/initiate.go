package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	invoiceRepo "afyalink/database/repository/invoice"
	patientRepo "afyalink/database/repository/patient"
	paymentRepo "afyalink/database/repository/payment"
	"afyalink/models"
	"afyalink/services/mpesa"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultPaymentService implements PaymentService.
type DefaultPaymentService struct {
	Payments paymentRepo.PaymentRepository
	Invoices invoiceRepo.InvoiceRepository
	Patients patientRepo.PatientRepository
	Gateway  Gateway
	Logger   *zap.Logger
}

// Initiate validates the request, persists a pending payment, and sends the
// STK push. The pending record is written before the gateway call so a crash
// mid-call still leaves an auditable trail; for the same reason it is never
// rolled back when the gateway call fails.
func (s *DefaultPaymentService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if req.InvoiceID == "" || req.PatientID == "" || req.Phone == "" || req.Amount == 0 {
		return nil, &ValidationError{Message: "invoice ID, patient ID, phone, and amount are required"}
	}
	if !validPhone(req.Phone) {
		return nil, &ValidationError{Message: "phone number must be in format 254XXXXXXXXX"}
	}
	if req.Amount < 0 {
		return nil, &ValidationError{Message: "amount must be a positive number"}
	}

	invoice, err := s.Invoices.GetByID(ctx, req.InvoiceID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{Resource: "invoice"}
		}
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return nil, &ConflictError{Message: "invoice is already paid"}
	}
	if req.Amount > invoice.Total {
		return nil, &ValidationError{Message: "amount exceeds the invoice total"}
	}

	if _, err := s.Patients.GetByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{Resource: "patient"}
		}
		return nil, fmt.Errorf("failed to fetch patient: %w", err)
	}

	pay := &models.Payment{
		InvoiceID: req.InvoiceID,
		PatientID: req.PatientID,
		Amount:    req.Amount,
		Phone:     req.Phone,
		Method:    models.PaymentMethodMpesa,
		Status:    models.PaymentStatusPending,
	}
	if err := s.Payments.Create(ctx, pay); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	s.Logger.Info("initiating STK push",
		zap.String("paymentId", pay.ID),
		zap.String("invoiceId", req.InvoiceID),
		zap.Float64("amount", req.Amount))

	params := mpesa.PushParams{
		Phone:            pay.Phone,
		Amount:           wholeAmount(pay.Amount),
		AccountReference: "INV-" + pay.InvoiceID,
		Description:      "Payment for invoice " + pay.InvoiceID,
	}
	ack, err := s.Gateway.STKPush(ctx, params)
	if err != nil {
		s.Logger.Error("STK push failed, payment left pending",
			zap.String("paymentId", pay.ID), zap.Error(err))
		return nil, &GatewayError{Message: "failed to initiate M-Pesa payment", Err: err}
	}

	gwAck := paymentRepo.GatewayAck{
		MerchantRequestID:   ack.MerchantRequestID,
		CheckoutRequestID:   ack.CheckoutRequestID,
		ResponseCode:        ack.ResponseCode,
		ResponseDescription: ack.ResponseDescription,
		CustomerMessage:     ack.CustomerMessage,
	}
	// The correlation pair is the only key a callback carries, so it must be
	// on disk before the caller sees the result.
	if err := s.Payments.AttachGatewayAck(ctx, pay.ID, gwAck); err != nil {
		return nil, fmt.Errorf("failed to store gateway ack: %w", err)
	}

	pay.MerchantRequestID = ack.MerchantRequestID
	pay.CheckoutRequestID = ack.CheckoutRequestID
	pay.ResponseCode = ack.ResponseCode
	pay.ResponseDescription = ack.ResponseDescription
	pay.CustomerMessage = ack.CustomerMessage

	return &InitiateResult{Payment: pay, MpesaResponse: ack}, nil
}

// validPhone checks the gateway's subscriber number format: country code 254
// followed by nine digits.
func validPhone(phone string) bool {
	if !strings.HasPrefix(phone, "254") || len(phone) != 12 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// wholeAmount rounds to whole shillings; the gateway does not accept cents.
func wholeAmount(amount float64) int {
	return int(math.Round(amount))
}
