package paymentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"afyalink/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Create inserts a new payment record.
func (r *MongoPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()

	if _, err := r.coll.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetByID returns a payment by its application-level ID.
func (r *MongoPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&payment)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// AttachGatewayAck stores the gateway's synchronous acknowledgment on the
// payment. Written once, right after the STK push call returns.
func (r *MongoPaymentRepo) AttachGatewayAck(ctx context.Context, id string, ack GatewayAck) error {
	update := bson.M{
		"$set": bson.M{
			"merchant_request_id":  ack.MerchantRequestID,
			"checkout_request_id":  ack.CheckoutRequestID,
			"response_code":        ack.ResponseCode,
			"response_description": ack.ResponseDescription,
			"customer_message":     ack.CustomerMessage,
			"updated_at":           time.Now(),
		},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to attach gateway ack: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkFailed transitions a pending payment to failed. The filter includes the
// pending status so a duplicate or late failure callback cannot clobber a
// terminal state.
func (r *MongoPaymentRepo) MarkFailed(ctx context.Context, id, description string) error {
	filter := bson.M{"id": id, "status": models.PaymentStatusPending}
	update := bson.M{
		"$set": bson.M{
			"status":               models.PaymentStatusFailed,
			"response_description": description,
			"updated_at":           time.Now(),
		},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotPending
	}
	return nil
}

// CompleteWithInvoice settles a payment and its invoice in one session
// transaction. The payment update is conditional on the record still being
// pending, which both enforces callback idempotency and closes the race
// between two concurrent deliveries of the same result.
func (r *MongoPaymentRepo) CompleteWithInvoice(ctx context.Context, paymentID, invoiceID string, fields CompletionFields) error {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		filter := bson.M{"id": paymentID, "status": models.PaymentStatusPending}
		update := bson.M{
			"$set": bson.M{
				"status":               models.PaymentStatusCompleted,
				"mpesa_receipt_number": fields.MpesaReceiptNumber,
				"phone":                fields.Phone,
				"transaction_date":     fields.TransactionDate,
				"response_description": fields.ResponseDescription,
				"updated_at":           time.Now(),
			},
		}
		res, err := r.coll.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("complete payment failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrNotPending
		}

		invoiceUpdate := bson.M{
			"$set": bson.M{
				"status":     models.InvoiceStatusPaid,
				"updated_at": time.Now(),
			},
		}
		if _, err := r.invoiceColl.UpdateOne(sc, bson.M{"id": invoiceID}, invoiceUpdate); err != nil {
			return fmt.Errorf("settle invoice failed: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if errors.Is(err, ErrNotPending) {
			return ErrNotPending
		}
		return fmt.Errorf("payment settlement transaction failed: %w", err)
	}

	return nil
}
