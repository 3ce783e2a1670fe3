package payment

import (
	"context"
	"errors"
	"time"

	paymentRepo "afyalink/database/repository/payment"

	"go.uber.org/zap"
)

// ReconcileStale drives every initiated transaction to a terminal state even
// when the callback was lost. Payments that were acknowledged by the gateway
// are resolved through the STK push query endpoint with the same transition
// logic as the callback path; payments that never got an acknowledgment are
// failed outright.
func (s *DefaultPaymentService) ReconcileStale(ctx context.Context, olderThan time.Time) error {
	stale, err := s.Payments.ListStalePending(ctx, olderThan)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	s.Logger.Info("reconciling stale pending payments", zap.Int("count", len(stale)))

	for i := range stale {
		pay := &stale[i]

		if pay.CheckoutRequestID == "" {
			// The STK push was never acknowledged; no gateway transaction
			// exists to query.
			if err := s.Payments.MarkFailed(ctx, pay.ID, "initiation was never acknowledged by the gateway"); err != nil &&
				!errors.Is(err, paymentRepo.ErrNotPending) {
				s.Logger.Error("failed to expire unacknowledged payment",
					zap.String("paymentId", pay.ID), zap.Error(err))
			}
			continue
		}

		res, err := s.Gateway.QueryStatus(ctx, pay.CheckoutRequestID)
		if err != nil {
			// The gateway answers with an error while the transaction is
			// still in flight; leave it for the next sweep.
			s.Logger.Warn("status query failed, will retry next sweep",
				zap.String("paymentId", pay.ID), zap.Error(err))
			continue
		}

		switch res.ResultCode {
		case "0":
			fields := paymentRepo.CompletionFields{
				Phone:               pay.Phone,
				TransactionDate:     time.Now(),
				ResponseDescription: res.ResultDesc,
			}
			err = s.Payments.CompleteWithInvoice(ctx, pay.ID, pay.InvoiceID, fields)
			if err != nil && !errors.Is(err, paymentRepo.ErrNotPending) {
				s.Logger.Error("failed to settle payment from sweep",
					zap.String("paymentId", pay.ID), zap.Error(err))
				continue
			}
			s.Logger.Info("stale payment settled via status query",
				zap.String("paymentId", pay.ID))
		case "":
			// Query accepted but no result yet.
			continue
		default:
			err = s.Payments.MarkFailed(ctx, pay.ID, res.ResultDesc)
			if err != nil && !errors.Is(err, paymentRepo.ErrNotPending) {
				s.Logger.Error("failed to fail payment from sweep",
					zap.String("paymentId", pay.ID), zap.Error(err))
				continue
			}
			s.Logger.Info("stale payment failed via status query",
				zap.String("paymentId", pay.ID),
				zap.String("resultCode", res.ResultCode))
		}
	}
	return nil
}
