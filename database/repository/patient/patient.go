package patientRepo

import (
	"context"

	"afyalink/config"
	"afyalink/database"
	"afyalink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// PatientRepository is the read-only boundary to patient records. The
// upstream identity service owns writes to this collection.
type PatientRepository interface {
	GetByID(ctx context.Context, id string) (*models.Patient, error)
}

type mongoPatientRepo struct {
	coll *mongo.Collection
}

// NewMongoPatientRepo returns a PatientRepository backed by MongoDB.
func NewMongoPatientRepo() PatientRepository {
	db := database.MongoClient.Database(config.AppConfig.DatabaseName)
	return &mongoPatientRepo{
		coll: db.Collection("patients"),
	}
}

// GetByID returns a patient by ID.
func (r *mongoPatientRepo) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	var patient models.Patient
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&patient); err != nil {
		return nil, err
	}
	return &patient, nil
}
