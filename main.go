// File: afyalink/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"afyalink/config"
	"afyalink/cron"
	"afyalink/database"
	invoiceRepo "afyalink/database/repository/invoice"
	patientRepo "afyalink/database/repository/patient"
	paymentRepo "afyalink/database/repository/payment"
	"afyalink/handlers"
	"afyalink/middleware"
	"afyalink/routes"
	"afyalink/services/billing"
	"afyalink/services/mpesa"
	"afyalink/services/payment"
	"afyalink/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	payRepo := paymentRepo.NewMongoPaymentRepo()
	invRepo := invoiceRepo.NewMongoInvoiceRepo()
	patRepo := patientRepo.NewMongoPatientRepo()

	// gateway client.
	mpesaClient := mpesa.NewClient(mpesa.Config{
		ConsumerKey:    config.AppConfig.MpesaConsumerKey,
		ConsumerSecret: config.AppConfig.MpesaConsumerSecret,
		Shortcode:      config.AppConfig.MpesaShortcode,
		Passkey:        config.AppConfig.MpesaPasskey,
		Environment:    config.AppConfig.MpesaEnvironment,
		CallbackURL:    config.AppConfig.MpesaCallbackURL,
	}, utils.GetCacheClient(), logger)

	// services.
	paymentService := &payment.DefaultPaymentService{
		Payments: payRepo,
		Invoices: invRepo,
		Patients: patRepo,
		Gateway:  mpesaClient,
		Logger:   logger,
	}
	billingService := &billing.DefaultBillingService{
		Invoices: invRepo,
		Patients: patRepo,
		Logger:   logger,
	}

	paymentHandler := handlers.NewPaymentHandler(paymentService)
	billingHandler := handlers.NewBillingHandler(billingService)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		// Payment endpoints.
		InitiateMpesaPayment: paymentHandler.InitiateMpesaPayment,
		MpesaCallback:        paymentHandler.MpesaCallback,
		GetPaymentByID:       paymentHandler.GetPaymentByID,
		GetPatientPayments:   paymentHandler.GetPatientPayments,
		CheckPaymentStatus:   paymentHandler.CheckPaymentStatus,

		// Billing endpoints.
		CreateInvoice:      billingHandler.CreateInvoice,
		GetAllInvoices:     billingHandler.GetAllInvoices,
		GetInvoiceByID:     billingHandler.GetInvoiceByID,
		GetPatientInvoices: billingHandler.GetPatientInvoices,
		UpdateInvoice:      billingHandler.UpdateInvoice,
		CancelInvoice:      billingHandler.CancelInvoice,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Background reconciliation sweep for lost callbacks.
	cron.InitReconcileWorker(paymentService)

	// Periodic dependency health snapshots for /health.
	utils.StartHealthMonitor(utils.GetCacheClient(), database.MongoClient)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
