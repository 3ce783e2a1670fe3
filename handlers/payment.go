package handlers

import (
	"errors"
	"net/http"

	"afyalink/services/mpesa"
	"afyalink/services/payment"
	"afyalink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentHandler exposes the payment reconciliation core over HTTP.
type PaymentHandler struct {
	Service payment.PaymentService
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(svc payment.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: svc}
}

// paymentError maps payment service errors onto HTTP statuses.
func paymentError(c *gin.Context, err error) {
	var (
		validationErr *payment.ValidationError
		notFoundErr   *payment.NotFoundError
		conflictErr   *payment.ConflictError
		gatewayErr    *payment.GatewayError
	)
	switch {
	case errors.As(err, &validationErr):
		utils.JSONError(c, http.StatusBadRequest, validationErr.Message, "")
	case errors.As(err, &notFoundErr):
		utils.JSONError(c, http.StatusNotFound, notFoundErr.Error(), "")
	case errors.As(err, &conflictErr):
		utils.JSONError(c, http.StatusConflict, conflictErr.Message, "")
	case errors.As(err, &gatewayErr):
		utils.JSONError(c, http.StatusBadGateway, gatewayErr.Message, gatewayErr.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

// InitiateMpesaPayment starts an STK push against an invoice.
func (h *PaymentHandler) InitiateMpesaPayment(c *gin.Context) {
	logger := getLogger(c)

	var req payment.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.Service.Initiate(c.Request.Context(), req)
	if err != nil {
		logger.Warn("payment initiation failed", zap.Error(err))
		paymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "M-Pesa payment initiated successfully",
		"payment":       result.Payment,
		"mpesaResponse": result.MpesaResponse,
	})
}

// MpesaCallback receives the gateway's asynchronous result. It answers 200
// for every request: a non-200 makes the gateway retry the delivery, which
// would only multiply duplicate processing.
func (h *PaymentHandler) MpesaCallback(c *gin.Context) {
	logger := getLogger(c)

	var envelope mpesa.CallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		logger.Warn("unparseable M-Pesa callback", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
		return
	}

	if err := h.Service.HandleCallback(c.Request.Context(), envelope); err != nil {
		logger.Error("failed to process M-Pesa callback", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback processed successfully"})
}

// GetPaymentByID returns the full payment record.
func (h *PaymentHandler) GetPaymentByID(c *gin.Context) {
	pay, err := h.Service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		paymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": pay})
}

// GetPatientPayments returns a patient's payment history, newest first.
func (h *PaymentHandler) GetPatientPayments(c *gin.Context) {
	payments, err := h.Service.ListByPatient(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		paymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// CheckPaymentStatus is the polling endpoint: clients call it while waiting
// for the callback, treating "pending" as still-in-flight.
func (h *PaymentHandler) CheckPaymentStatus(c *gin.Context) {
	status, err := h.Service.GetStatus(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		paymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
