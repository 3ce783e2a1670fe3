package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"afyalink/models"
	"afyalink/services/mpesa"
	"afyalink/services/payment"

	"github.com/gin-gonic/gin"
)

type mockPaymentService struct {
	InitiateFunc       func(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error)
	HandleCallbackFunc func(ctx context.Context, envelope mpesa.CallbackEnvelope) error
	GetStatusFunc      func(ctx context.Context, paymentID string) (*payment.Status, error)
	GetByIDFunc        func(ctx context.Context, paymentID string) (*models.Payment, error)
	ListByPatientFunc  func(ctx context.Context, patientID string) ([]models.Payment, error)

	callbacks int
}

func (m *mockPaymentService) Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error) {
	return m.InitiateFunc(ctx, req)
}

func (m *mockPaymentService) HandleCallback(ctx context.Context, envelope mpesa.CallbackEnvelope) error {
	m.callbacks++
	if m.HandleCallbackFunc != nil {
		return m.HandleCallbackFunc(ctx, envelope)
	}
	return nil
}

func (m *mockPaymentService) GetStatus(ctx context.Context, paymentID string) (*payment.Status, error) {
	return m.GetStatusFunc(ctx, paymentID)
}

func (m *mockPaymentService) GetByID(ctx context.Context, paymentID string) (*models.Payment, error) {
	return m.GetByIDFunc(ctx, paymentID)
}

func (m *mockPaymentService) ListByPatient(ctx context.Context, patientID string) ([]models.Payment, error) {
	return m.ListByPatientFunc(ctx, patientID)
}

func (m *mockPaymentService) ReconcileStale(ctx context.Context, olderThan time.Time) error {
	return nil
}

func paymentRouter(svc payment.PaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPaymentHandler(svc)
	r := gin.New()
	r.POST("/api/payments/initiate", h.InitiateMpesaPayment)
	r.POST("/api/payments/mpesa/callback", h.MpesaCallback)
	r.GET("/api/payments/payment/:id", h.GetPaymentByID)
	r.GET("/api/payments/status/:paymentId", h.CheckPaymentStatus)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInitiateErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", &payment.ValidationError{Message: "phone must be in 254XXXXXXXXX format"}, http.StatusBadRequest},
		{"not found", &payment.NotFoundError{Resource: "invoice"}, http.StatusNotFound},
		{"conflict", &payment.ConflictError{Message: "invoice already paid"}, http.StatusConflict},
		{"gateway", &payment.GatewayError{Message: "failed to reach M-Pesa", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"unexpected", errors.New("collection scan failed"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockPaymentService{
				InitiateFunc: func(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error) {
					return nil, tc.err
				},
			}
			r := paymentRouter(svc)

			w := doJSON(r, http.MethodPost, "/api/payments/initiate",
				`{"invoiceId":"inv-1","patientId":"patient-1","phone":"254712345678","amount":1500}`)

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}

func TestInitiateSuccessPayload(t *testing.T) {
	svc := &mockPaymentService{
		InitiateFunc: func(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error) {
			if req.Phone != "254712345678" {
				t.Errorf("bound phone = %q", req.Phone)
			}
			return &payment.InitiateResult{
				Payment: &models.Payment{ID: "pay-1", Status: models.PaymentStatusPending},
				MpesaResponse: &mpesa.STKPushResponse{
					CheckoutRequestID: "ws_CO_191220191020363925",
					ResponseCode:      "0",
					CustomerMessage:   "Success. Request accepted for processing",
				},
			}, nil
		},
	}
	r := paymentRouter(svc)

	w := doJSON(r, http.MethodPost, "/api/payments/initiate",
		`{"invoiceId":"inv-1","patientId":"patient-1","phone":"254712345678","amount":1500}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var body struct {
		Payment       models.Payment        `json:"payment"`
		MpesaResponse mpesa.STKPushResponse `json:"mpesaResponse"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Payment.ID != "pay-1" || body.MpesaResponse.CheckoutRequestID != "ws_CO_191220191020363925" {
		t.Errorf("unexpected payload: %s", w.Body.String())
	}
}

func TestInitiateMalformedBody(t *testing.T) {
	svc := &mockPaymentService{
		InitiateFunc: func(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error) {
			t.Error("service called for malformed body")
			return nil, nil
		},
	}
	r := paymentRouter(svc)

	w := doJSON(r, http.MethodPost, "/api/payments/initiate", `{"amount": "not-a-number"`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCallbackAlwaysAnswers200(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		svc := &mockPaymentService{}
		r := paymentRouter(svc)

		env := mpesa.CallbackEnvelope{}
		env.Body.StkCallback.MerchantRequestID = "29115-34620561-1"
		env.Body.StkCallback.CheckoutRequestID = "ws_CO_191220191020363925"
		raw, _ := json.Marshal(env)

		w := doJSON(r, http.MethodPost, "/api/payments/mpesa/callback", string(bytes.TrimSpace(raw)))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
		if svc.callbacks != 1 {
			t.Errorf("callback processed %d times, want 1", svc.callbacks)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := &mockPaymentService{}
		r := paymentRouter(svc)

		w := doJSON(r, http.MethodPost, "/api/payments/mpesa/callback", `{"Body": not-json`)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200 (gateway must never see an error)", w.Code)
		}
		if svc.callbacks != 0 {
			t.Errorf("callback processed %d times for garbage input", svc.callbacks)
		}
	})

	t.Run("processing failure", func(t *testing.T) {
		svc := &mockPaymentService{
			HandleCallbackFunc: func(ctx context.Context, envelope mpesa.CallbackEnvelope) error {
				return errors.New("transaction aborted")
			},
		}
		r := paymentRouter(svc)

		w := doJSON(r, http.MethodPost, "/api/payments/mpesa/callback", `{"Body":{"stkCallback":{"ResultCode":0}}}`)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200 even when processing fails", w.Code)
		}
	})
}

func TestCheckPaymentStatus(t *testing.T) {
	svc := &mockPaymentService{
		GetStatusFunc: func(ctx context.Context, paymentID string) (*payment.Status, error) {
			if paymentID != "pay-1" {
				return nil, &payment.NotFoundError{Resource: "payment"}
			}
			return &payment.Status{
				PaymentID:          "pay-1",
				Status:             models.PaymentStatusCompleted,
				MpesaReceiptNumber: "NLJ7RT61SV",
				Amount:             1500,
			}, nil
		},
	}
	r := paymentRouter(svc)

	w := doJSON(r, http.MethodGet, "/api/payments/status/pay-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var status payment.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Status != models.PaymentStatusCompleted || status.MpesaReceiptNumber != "NLJ7RT61SV" {
		t.Errorf("unexpected status payload: %s", w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/api/payments/status/unknown", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetPaymentByID(t *testing.T) {
	svc := &mockPaymentService{
		GetByIDFunc: func(ctx context.Context, paymentID string) (*models.Payment, error) {
			return &models.Payment{ID: paymentID, Status: models.PaymentStatusPending}, nil
		},
	}
	r := paymentRouter(svc)

	w := doJSON(r, http.MethodGet, "/api/payments/payment/pay-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Payment models.Payment `json:"payment"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Payment.ID != "pay-1" {
		t.Errorf("payment id = %q, want pay-1", body.Payment.ID)
	}
}
