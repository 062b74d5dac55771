package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flai/config"
	"flai/models"

	"github.com/hibiken/asynq"
)

// Task types routed through the async worker.
const (
	TypeFlightSearch = "flights:search"
	TypeUSDCPoll     = "payments:usdc:poll"
	TypeChainPoll    = "payments:circlelayer:poll"
)

// SearchPayload carries the slots frozen at confirmation time; the task does
// not re-read them from the session.
type SearchPayload struct {
	UserID  string               `json:"user_id"`
	Details models.FlightDetails `json:"details"`
}

type USDCPollPayload struct {
	UserID   string `json:"user_id"`
	IntentID string `json:"intent_id"`
}

type ChainPollPayload struct {
	UserID string `json:"user_id"`
}

// Client enqueues background booking tasks. It satisfies the dispatcher
// interface the booking service consumes.
type Client struct {
	client *asynq.Client
}

func NewClient() *Client {
	return &Client{client: asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	})}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) DispatchFlightSearch(ctx context.Context, userID string, details models.FlightDetails) error {
	return c.enqueue(ctx, TypeFlightSearch, SearchPayload{UserID: userID, Details: details},
		asynq.MaxRetry(3), asynq.Timeout(2*time.Minute))
}

func (c *Client) DispatchUSDCPoll(ctx context.Context, userID, intentID string) error {
	return c.enqueue(ctx, TypeUSDCPoll, USDCPollPayload{UserID: userID, IntentID: intentID},
		asynq.MaxRetry(0), asynq.Timeout(90*time.Minute))
}

func (c *Client) DispatchChainPoll(ctx context.Context, userID string) error {
	return c.enqueue(ctx, TypeChainPoll, ChainPollPayload{UserID: userID},
		asynq.MaxRetry(0), asynq.Timeout(90*time.Minute))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	if _, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, encoded), opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
