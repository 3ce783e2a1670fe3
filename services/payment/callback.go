package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	paymentRepo "afyalink/database/repository/payment"
	"afyalink/services/mpesa"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleCallback applies an asynchronous gateway result to the matching
// payment. The gateway delivers at least once, so unmatched, duplicate, and
// raced callbacks are all logged and discarded without error — the HTTP layer
// answers 200 regardless, because a non-200 would make the gateway retry and
// multiply deliveries.
func (s *DefaultPaymentService) HandleCallback(ctx context.Context, envelope mpesa.CallbackEnvelope) error {
	cb := envelope.Body.StkCallback

	pay, err := s.Payments.GetByCorrelationIDs(ctx, cb.MerchantRequestID, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			s.Logger.Warn("callback matched no payment, discarding",
				zap.String("merchantRequestId", cb.MerchantRequestID),
				zap.String("checkoutRequestId", cb.CheckoutRequestID))
			return nil
		}
		return fmt.Errorf("failed to look up payment for callback: %w", err)
	}

	if pay.IsTerminal() {
		s.Logger.Info("duplicate callback for settled payment, ignoring",
			zap.String("paymentId", pay.ID),
			zap.String("status", pay.Status))
		return nil
	}

	if cb.ResultCode == 0 {
		return s.applySuccess(ctx, pay.ID, pay.InvoiceID, cb)
	}
	return s.applyFailure(ctx, pay.ID, cb)
}

func (s *DefaultPaymentService) applySuccess(ctx context.Context, paymentID, invoiceID string, cb mpesa.STKCallback) error {
	fields := paymentRepo.CompletionFields{
		ResponseDescription: cb.ResultDesc,
	}
	if cb.CallbackMetadata != nil {
		if receipt, ok := cb.CallbackMetadata.String("MpesaReceiptNumber"); ok {
			fields.MpesaReceiptNumber = receipt
		}
		if phone, ok := cb.CallbackMetadata.String("PhoneNumber"); ok {
			fields.Phone = phone
		}
		if t, ok := cb.CallbackMetadata.Time("TransactionDate"); ok {
			fields.TransactionDate = t
		}
	}
	if fields.TransactionDate.IsZero() {
		fields.TransactionDate = time.Now()
	}

	err := s.Payments.CompleteWithInvoice(ctx, paymentID, invoiceID, fields)
	if errors.Is(err, paymentRepo.ErrNotPending) {
		// A concurrent delivery won the conditional update.
		s.Logger.Info("payment settled by a concurrent callback",
			zap.String("paymentId", paymentID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to settle payment %s: %w", paymentID, err)
	}

	s.Logger.Info("payment completed",
		zap.String("paymentId", paymentID),
		zap.String("invoiceId", invoiceID),
		zap.String("receipt", fields.MpesaReceiptNumber))
	return nil
}

func (s *DefaultPaymentService) applyFailure(ctx context.Context, paymentID string, cb mpesa.STKCallback) error {
	err := s.Payments.MarkFailed(ctx, paymentID, cb.ResultDesc)
	if errors.Is(err, paymentRepo.ErrNotPending) {
		s.Logger.Info("failure callback raced a settled payment, ignoring",
			zap.String("paymentId", paymentID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark payment %s failed: %w", paymentID, err)
	}

	s.Logger.Info("payment failed",
		zap.String("paymentId", paymentID),
		zap.Int("resultCode", cb.ResultCode),
		zap.String("resultDesc", cb.ResultDesc))
	return nil
}
