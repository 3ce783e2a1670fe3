package invoiceRepo

import (
	"context"
	"fmt"
	"time"

	"afyalink/config"
	"afyalink/database"
	"afyalink/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoInvoiceRepo struct {
	coll *mongo.Collection
}

// NewMongoInvoiceRepo returns a new InvoiceRepository instance using MongoDB.
func NewMongoInvoiceRepo() InvoiceRepository {
	db := database.MongoClient.Database(config.AppConfig.DatabaseName)
	repo := &mongoInvoiceRepo{
		coll: db.Collection("invoices"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create invoice indexes: %v\n", err)
	}
	return repo
}

func (r *mongoInvoiceRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "patient_id", Value: 1}}},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create inserts a new invoice. The total is recomputed from the line items
// before the write, never trusted from the caller.
func (r *mongoInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusPending
	}
	invoice.ComputeTotal()
	invoice.CreatedAt = time.Now()
	invoice.UpdatedAt = time.Now()

	if _, err := r.coll.InsertOne(ctx, invoice); err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

// GetByID returns an invoice by its ID.
func (r *mongoInvoiceRepo) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListByPatient returns all invoices for a patient, newest first.
func (r *mongoInvoiceRepo) ListByPatient(ctx context.Context, patientID string) ([]models.Invoice, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"patient_id": patientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var invoices []models.Invoice
	if err := cursor.All(ctx, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListAll returns every invoice, newest first.
func (r *mongoInvoiceRepo) ListAll(ctx context.Context) ([]models.Invoice, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var invoices []models.Invoice
	if err := cursor.All(ctx, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// UpdateItems replaces the line items and total of an invoice.
func (r *mongoInvoiceRepo) UpdateItems(ctx context.Context, id string, items []models.InvoiceItem) (*models.Invoice, error) {
	tmp := models.Invoice{Items: items}
	tmp.ComputeTotal()

	update := bson.M{
		"$set": bson.M{
			"items":      items,
			"total":      tmp.Total,
			"updated_at": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var invoice models.Invoice
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, update, opts).Decode(&invoice)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateStatus writes the invoice status.
func (r *mongoInvoiceRepo) UpdateStatus(ctx context.Context, id, status string) error {
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
