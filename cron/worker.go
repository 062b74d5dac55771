package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"flai/config"
	"flai/services/booking"
	"flai/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitBookingWorker runs the async worker in background.
func InitBookingWorker(bookingSvc booking.BookingService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeFlightSearch, handleFlightSearchTask(bookingSvc))
	mux.HandleFunc(tasks.TypeUSDCPoll, handleUSDCPollTask(bookingSvc))
	mux.HandleFunc(tasks.TypeChainPoll, handleChainPollTask(bookingSvc))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[BookingWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[BookingWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[BookingWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleFlightSearchTask(bookingSvc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.SearchPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[SearchHandler] 🔴 Invalid payload: %v", err)
			return err
		}
		log.Printf("[SearchHandler] ✈️ Searching flights for %s: %s → %s", p.UserID, p.Details.Origin, p.Details.Destination)
		return bookingSvc.RunFlightSearch(ctx, p.UserID, p.Details)
	}
}

func handleUSDCPollTask(bookingSvc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.USDCPollPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[USDCPollHandler] 🔴 Invalid payload: %v", err)
			return err
		}
		log.Printf("[USDCPollHandler] 💸 Polling payment intent %s for %s", p.IntentID, p.UserID)
		return bookingSvc.RunUSDCPoll(ctx, p.UserID, p.IntentID)
	}
}

func handleChainPollTask(bookingSvc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.ChainPollPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ChainPollHandler] 🔴 Invalid payload: %v", err)
			return err
		}
		log.Printf("[ChainPollHandler] ⛓️ Watching deposit address for %s", p.UserID)
		return bookingSvc.RunChainPoll(ctx, p.UserID)
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[BookingWorker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(30 * time.Second)
	}
}
