package flights

import (
	"context"
	"time"

	"flai/models"

	"go.uber.org/zap"
)

const (
	defaultRetryBudget   = 15 * time.Second
	defaultRetryInterval = 2 * time.Second
)

// Gateway wraps a flight Service with a bounded retry budget. Callers get an
// empty result set when the budget is exhausted, never an error; "no offers
// found" is a user-facing outcome, not an internal failure.
type Gateway struct {
	Service Service
	Logger  *zap.Logger

	// Budget and Interval fall back to the defaults when zero.
	Budget   time.Duration
	Interval time.Duration
}

func NewGateway(service Service, logger *zap.Logger) *Gateway {
	return &Gateway{Service: service, Logger: logger}
}

// SearchWithRetry retries the search on error with a fixed backoff until the
// total budget elapses.
func (g *Gateway) SearchWithRetry(ctx context.Context, params SearchParams) []models.FlightOffer {
	budget := g.Budget
	if budget <= 0 {
		budget = defaultRetryBudget
	}
	interval := g.Interval
	if interval <= 0 {
		interval = defaultRetryInterval
	}

	deadline := time.Now().Add(budget)
	var lastErr error
	for attempt := 1; ; attempt++ {
		offers, err := g.Service.Search(ctx, params)
		if err == nil {
			return offers
		}
		lastErr = err

		if time.Now().Add(interval).After(deadline) {
			break
		}
		g.Logger.Warn("flight search failed, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			g.Logger.Warn("flight search cancelled", zap.Error(ctx.Err()))
			return []models.FlightOffer{}
		case <-time.After(interval):
		}
	}

	g.Logger.Warn("flight search retry budget exhausted", zap.Error(lastErr))
	return []models.FlightOffer{}
}
