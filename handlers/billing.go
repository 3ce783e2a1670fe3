package handlers

import (
	"errors"
	"net/http"

	"afyalink/models"
	"afyalink/services/billing"
	"afyalink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BillingHandler exposes invoice management over HTTP.
type BillingHandler struct {
	Service billing.BillingService
}

// NewBillingHandler creates a BillingHandler.
func NewBillingHandler(svc billing.BillingService) *BillingHandler {
	return &BillingHandler{Service: svc}
}

func billingError(c *gin.Context, err error) {
	var (
		validationErr *billing.ValidationError
		notFoundErr   *billing.NotFoundError
		conflictErr   *billing.ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		utils.JSONError(c, http.StatusBadRequest, validationErr.Message, "")
	case errors.As(err, &notFoundErr):
		utils.JSONError(c, http.StatusNotFound, notFoundErr.Error(), "")
	case errors.As(err, &conflictErr):
		utils.JSONError(c, http.StatusConflict, conflictErr.Message, "")
	default:
		utils.JSONError(c, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

// CreateInvoice raises a new invoice for a patient.
func (h *BillingHandler) CreateInvoice(c *gin.Context) {
	logger := getLogger(c)

	var req billing.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	invoice, err := h.Service.Create(c.Request.Context(), req)
	if err != nil {
		logger.Warn("invoice creation failed", zap.Error(err))
		billingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Invoice created successfully", "invoice": invoice})
}

// GetAllInvoices lists every invoice (admin view).
func (h *BillingHandler) GetAllInvoices(c *gin.Context) {
	invoices, err := h.Service.ListAll(c.Request.Context())
	if err != nil {
		billingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// GetInvoiceByID returns one invoice.
func (h *BillingHandler) GetInvoiceByID(c *gin.Context) {
	invoice, err := h.Service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		billingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

// GetPatientInvoices lists a patient's invoices, newest first.
func (h *BillingHandler) GetPatientInvoices(c *gin.Context) {
	invoices, err := h.Service.ListByPatient(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		billingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// UpdateInvoice replaces the line items of a pending invoice.
func (h *BillingHandler) UpdateInvoice(c *gin.Context) {
	var req struct {
		Items []models.InvoiceItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	invoice, err := h.Service.UpdateItems(c.Request.Context(), c.Param("id"), req.Items)
	if err != nil {
		billingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice updated successfully", "invoice": invoice})
}

// CancelInvoice marks a pending invoice canceled. Invoices are never
// hard-deleted because payments may reference them.
func (h *BillingHandler) CancelInvoice(c *gin.Context) {
	if err := h.Service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		billingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice canceled"})
}
