package paymentRepo

import (
	"context"
	"fmt"
	"time"

	"afyalink/config"
	"afyalink/database"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoPaymentRepo implements PaymentRepository using MongoDB.
// It also holds the invoices collection so the callback success path can
// settle payment and invoice inside one session transaction.
type MongoPaymentRepo struct {
	coll        *mongo.Collection
	invoiceColl *mongo.Collection
}

// NewMongoPaymentRepo creates a new instance of PaymentRepository using MongoDB.
func NewMongoPaymentRepo() PaymentRepository {
	db := database.MongoClient.Database(config.AppConfig.DatabaseName)
	repo := &MongoPaymentRepo{
		coll:        db.Collection("payments"),
		invoiceColl: db.Collection("invoices"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create payment indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
