package handlers

import "github.com/gin-gonic/gin"

// HandlerBundle groups all HTTP handlers for route registration.
type HandlerBundle struct {
	// Payment endpoints.
	InitiateMpesaPayment gin.HandlerFunc
	MpesaCallback        gin.HandlerFunc
	GetPaymentByID       gin.HandlerFunc
	GetPatientPayments   gin.HandlerFunc
	CheckPaymentStatus   gin.HandlerFunc

	// Billing endpoints.
	CreateInvoice      gin.HandlerFunc
	GetAllInvoices     gin.HandlerFunc
	GetInvoiceByID     gin.HandlerFunc
	GetPatientInvoices gin.HandlerFunc
	UpdateInvoice      gin.HandlerFunc
	CancelInvoice      gin.HandlerFunc
}
