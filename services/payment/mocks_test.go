package payment

import (
	"context"
	"sync"
	"time"

	paymentRepo "afyalink/database/repository/payment"
	"afyalink/models"
	"afyalink/services/mpesa"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func zapNop() *zap.Logger {
	return zap.NewNop()
}

// memPaymentRepo is an in-memory PaymentRepository with the same conditional
// update semantics as the Mongo implementation.
type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	invoices *memInvoiceRepo

	createCalls   int
	completeCalls int
	failCalls     int
}

func newMemPaymentRepo(invoices *memInvoiceRepo) *memPaymentRepo {
	return &memPaymentRepo{
		payments: make(map[string]*models.Payment),
		invoices: invoices,
	}
}

func (r *memPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()
	cp := *payment
	r.payments[payment.ID] = &cp
	r.createCalls++
	return nil
}

func (r *memPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *p
	return &cp, nil
}

func (r *memPaymentRepo) GetByCorrelationIDs(ctx context.Context, merchantRequestID, checkoutRequestID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.MerchantRequestID == merchantRequestID && p.CheckoutRequestID == checkoutRequestID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *memPaymentRepo) ListByPatient(ctx context.Context, patientID string) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.PatientID == patientID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) AttachGatewayAck(ctx context.Context, id string, ack paymentRepo.GatewayAck) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	p.MerchantRequestID = ack.MerchantRequestID
	p.CheckoutRequestID = ack.CheckoutRequestID
	p.ResponseCode = ack.ResponseCode
	p.ResponseDescription = ack.ResponseDescription
	p.CustomerMessage = ack.CustomerMessage
	p.UpdatedAt = time.Now()
	return nil
}

func (r *memPaymentRepo) CompleteWithInvoice(ctx context.Context, paymentID, invoiceID string, fields paymentRepo.CompletionFields) error {
	r.mu.Lock()
	p, ok := r.payments[paymentID]
	if !ok || p.Status != models.PaymentStatusPending {
		r.mu.Unlock()
		return paymentRepo.ErrNotPending
	}
	p.Status = models.PaymentStatusCompleted
	p.MpesaReceiptNumber = fields.MpesaReceiptNumber
	if fields.Phone != "" {
		p.Phone = fields.Phone
	}
	p.TransactionDate = fields.TransactionDate
	p.ResponseDescription = fields.ResponseDescription
	p.UpdatedAt = time.Now()
	r.completeCalls++
	r.mu.Unlock()

	if r.invoices != nil {
		return r.invoices.UpdateStatus(ctx, invoiceID, models.InvoiceStatusPaid)
	}
	return nil
}

func (r *memPaymentRepo) MarkFailed(ctx context.Context, id, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return paymentRepo.ErrNotPending
	}
	p.Status = models.PaymentStatusFailed
	p.ResponseDescription = description
	p.UpdatedAt = time.Now()
	r.failCalls++
	return nil
}

func (r *memPaymentRepo) ListStalePending(ctx context.Context, olderThan time.Time) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.Status == models.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}

// memInvoiceRepo is an in-memory InvoiceRepository.
type memInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*models.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[string]*models.Invoice)}
}

func (r *memInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusPending
	}
	invoice.ComputeTotal()
	invoice.CreatedAt = time.Now()
	invoice.UpdatedAt = time.Now()
	cp := *invoice
	r.invoices[invoice.ID] = &cp
	return nil
}

func (r *memInvoiceRepo) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoiceRepo) ListByPatient(ctx context.Context, patientID string) ([]models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Invoice
	for _, inv := range r.invoices {
		if inv.PatientID == patientID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memInvoiceRepo) ListAll(ctx context.Context) ([]models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Invoice
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *memInvoiceRepo) UpdateItems(ctx context.Context, id string, items []models.InvoiceItem) (*models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	inv.Items = items
	inv.ComputeTotal()
	inv.UpdatedAt = time.Now()
	cp := *inv
	return &cp, nil
}

func (r *memInvoiceRepo) UpdateStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	inv.Status = status
	inv.UpdatedAt = time.Now()
	return nil
}

func (r *memInvoiceRepo) status(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.invoices[id]; ok {
		return inv.Status
	}
	return ""
}

// memPatientRepo is an in-memory PatientRepository.
type memPatientRepo struct {
	patients map[string]*models.Patient
}

func newMemPatientRepo(ids ...string) *memPatientRepo {
	r := &memPatientRepo{patients: make(map[string]*models.Patient)}
	for _, id := range ids {
		r.patients[id] = &models.Patient{ID: id, Name: "Test Patient"}
	}
	return r
}

func (r *memPatientRepo) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *p
	return &cp, nil
}

// mockGateway implements Gateway with overridable functions.
type mockGateway struct {
	STKPushFunc     func(ctx context.Context, params mpesa.PushParams) (*mpesa.STKPushResponse, error)
	QueryStatusFunc func(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)

	pushCalls  int
	queryCalls int
}

func (g *mockGateway) STKPush(ctx context.Context, params mpesa.PushParams) (*mpesa.STKPushResponse, error) {
	g.pushCalls++
	if g.STKPushFunc != nil {
		return g.STKPushFunc(ctx, params)
	}
	return &mpesa.STKPushResponse{
		MerchantRequestID:   "29115-34620561-1",
		CheckoutRequestID:   "ws_CO_191220191020363925",
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}

func (g *mockGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	g.queryCalls++
	if g.QueryStatusFunc != nil {
		return g.QueryStatusFunc(ctx, checkoutRequestID)
	}
	return &mpesa.STKQueryResponse{ResponseCode: "0", ResultCode: "0", ResultDesc: "The service request is processed successfully."}, nil
}

// newTestService wires a DefaultPaymentService over in-memory stores with one
// pending invoice and one patient.
func newTestService(invoiceTotal float64) (*DefaultPaymentService, *memPaymentRepo, *memInvoiceRepo, *mockGateway, string) {
	invoices := newMemInvoiceRepo()
	inv := &models.Invoice{
		PatientID: "patient-1",
		Items:     []models.InvoiceItem{{Name: "Consultation", Price: invoiceTotal}},
	}
	_ = invoices.Create(context.Background(), inv)

	payments := newMemPaymentRepo(invoices)
	gateway := &mockGateway{}

	svc := &DefaultPaymentService{
		Payments: payments,
		Invoices: invoices,
		Patients: newMemPatientRepo("patient-1"),
		Gateway:  gateway,
		Logger:   zapNop(),
	}
	return svc, payments, invoices, gateway, inv.ID
}
