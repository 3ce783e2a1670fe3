package routes

import (
	"net/http"
	"time"

	"afyalink/handlers"
	"afyalink/middleware"
	"afyalink/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterPaymentRoutes registers the M-Pesa payment endpoints. The callback
// endpoint is public: the gateway does not authenticate with our tokens.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/payments")
	{
		api.POST("/mpesa/callback", hb.MpesaCallback)

		// Protected routes (Require Authentication)
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("/mpesa/initiate", hb.InitiateMpesaPayment)
		api.GET("/payment/:id", hb.GetPaymentByID)
		api.GET("/patient/:patientId", middleware.RequireRoles("patient", "admin"), hb.GetPatientPayments)
		api.GET("/status/:paymentId", hb.CheckPaymentStatus)
	}
}

// RegisterBillingRoutes registers the invoice management endpoints.
func RegisterBillingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bills")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", middleware.RequireRoles("admin", "doctor"), hb.CreateInvoice)
		api.GET("", middleware.RequireRoles("admin"), hb.GetAllInvoices)
		api.GET("/:id", hb.GetInvoiceByID)
		api.GET("/patient/:patientId", middleware.RequireRoles("patient", "admin"), hb.GetPatientInvoices)
		api.PUT("/:id", middleware.RequireRoles("admin", "doctor"), hb.UpdateInvoice)
		api.DELETE("/:id", middleware.RequireRoles("admin"), hb.CancelInvoice)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "health": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterPaymentRoutes(r, hb)
	RegisterBillingRoutes(r, hb)
	RegisterHealthRoute(r)
}
