package models

import "time"

// Invoice statuses. "paid" is only ever written by the payment reconciler.
const (
	InvoiceStatusPending  = "pending"
	InvoiceStatusPaid     = "paid"
	InvoiceStatusCanceled = "canceled"
)

// InvoiceItem is a single billed line on an invoice.
type InvoiceItem struct {
	Name  string  `bson:"name" json:"name" binding:"required"`
	Price float64 `bson:"price" json:"price" binding:"required"`
}

// Invoice represents the billed services for a care episode.
type Invoice struct {
	ID            string        `bson:"id" json:"id"`
	PatientID     string        `bson:"patient_id" json:"patientId"`
	AppointmentID string        `bson:"appointment_id,omitempty" json:"appointmentId,omitempty"`
	Items         []InvoiceItem `bson:"items" json:"items"`
	Total         float64       `bson:"total" json:"total"`
	Status        string        `bson:"status" json:"status"`
	CreatedAt     time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updatedAt"`
}

// ComputeTotal recalculates the invoice total from its line items.
// Persistence paths must call this before every write so the stored total
// never drifts from the items.
func (inv *Invoice) ComputeTotal() {
	var total float64
	for _, item := range inv.Items {
		total += item.Price
	}
	inv.Total = total
}
