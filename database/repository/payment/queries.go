package paymentRepo

import (
	"context"
	"time"

	"afyalink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetByCorrelationIDs finds the payment whose stored gateway identifiers both
// match. Callbacks carry no application-level payment ID, so this pair is the
// only reliable lookup key.
func (r *MongoPaymentRepo) GetByCorrelationIDs(ctx context.Context, merchantRequestID, checkoutRequestID string) (*models.Payment, error) {
	filter := bson.M{
		"merchant_request_id": merchantRequestID,
		"checkout_request_id": checkoutRequestID,
	}
	var payment models.Payment
	if err := r.coll.FindOne(ctx, filter).Decode(&payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByPatient returns all payments for a patient, newest first.
func (r *MongoPaymentRepo) ListByPatient(ctx context.Context, patientID string) ([]models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"patient_id": patientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// ListStalePending returns pending payments created before the cutoff.
func (r *MongoPaymentRepo) ListStalePending(ctx context.Context, olderThan time.Time) ([]models.Payment, error) {
	filter := bson.M{
		"status":     models.PaymentStatusPending,
		"created_at": bson.M{"$lt": olderThan},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}
