package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"afyalink/config"
	"afyalink/services/payment"

	"github.com/hibiken/asynq"
)

const TypePaymentReconcile = "payment:reconcile"

// InitReconcileWorker runs the reconciliation sweep in the background: a
// periodic task that drives payments stuck in "pending" (lost callbacks) to a
// terminal state via the gateway's status-query endpoint.
func InitReconcileWorker(paymentSvc payment.PaymentService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPass,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePaymentReconcile, handleReconcileTask(paymentSvc))

	scheduler := asynq.NewScheduler(redisOpts, nil)
	interval := config.AppConfig.SweepIntervalMinutes
	if interval <= 0 {
		interval = 5
	}
	spec := fmt.Sprintf("@every %dm", interval)
	if _, err := scheduler.Register(spec, asynq.NewTask(TypePaymentReconcile, nil)); err != nil {
		log.Printf("[ReconcileWorker] failed to register sweep schedule: %v", err)
		return
	}

	// Start scheduler and worker with retry logic.
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("[ReconcileWorker] scheduler stopped: %v", err)
		}
	}()

	go func() {
		log.Println("[ReconcileWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReconcileWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ReconcileWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleReconcileTask(paymentSvc payment.PaymentService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		threshold := config.AppConfig.SweepPendingAgeMin
		if threshold <= 0 {
			threshold = 10
		}
		cutoff := time.Now().Add(-time.Duration(threshold) * time.Minute)

		if err := paymentSvc.ReconcileStale(ctx, cutoff); err != nil {
			log.Printf("[ReconcileWorker] sweep failed: %v", err)
			return err
		}
		return nil
	}
}
