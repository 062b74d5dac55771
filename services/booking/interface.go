package booking

import (
	"context"
	"time"

	"flai/database/repository"
	"flai/models"
	"flai/services/chain"
	"flai/services/circle"
	"flai/services/currency"
	"flai/services/flights"
	ai "flai/services/intelligence"
	"flai/services/messaging"
	"flai/services/payments"
	"flai/services/pdf"
	"flai/services/session"
	"flai/services/settlement"

	"go.uber.org/zap"
)

// TaskDispatcher enqueues the detached units of work the dialog hands off:
// the flight search and the two payment pollers. Dispatch happens only after
// the session state that marks the hand-off has been saved.
type TaskDispatcher interface {
	DispatchFlightSearch(ctx context.Context, userID string, details models.FlightDetails) error
	DispatchUSDCPoll(ctx context.Context, userID, intentID string) error
	DispatchChainPoll(ctx context.Context, userID string) error
}

// BookingService drives the booking dialog. ProcessMessage consumes one user
// message; HandleSuccessfulPayment is the card-webhook settlement trigger;
// the Run* methods are the bodies of the dispatched background tasks.
type BookingService interface {
	ProcessMessage(ctx context.Context, userID, text string) ([]string, error)
	HandleSuccessfulPayment(ctx context.Context, userID string) error
	RunFlightSearch(ctx context.Context, userID string, details models.FlightDetails) error
	RunUSDCPoll(ctx context.Context, userID, intentID string) error
	RunChainPoll(ctx context.Context, userID string) error
}

// DefaultBookingService is the production implementation.
type DefaultBookingService struct {
	Sessions    session.Store
	Settlements settlement.Tracker
	AI          ai.Service
	Flights     *flights.Gateway
	Chain       chain.Service
	Circle      circle.Service
	Checkout    payments.CheckoutService
	Currency    currency.Converter
	PDF         pdf.Renderer
	Messenger   messaging.Messenger
	Tasks       TaskDispatcher
	Bookings    repository.BookingRepository
	Logger      *zap.Logger

	// Poller cadence, falling back to the defaults when zero.
	USDCPollInterval  time.Duration
	ChainPollInterval time.Duration
	PollTimeout       time.Duration
}

const (
	defaultUSDCPollInterval  = 30 * time.Second
	defaultChainPollInterval = 15 * time.Second
	defaultPollTimeout       = time.Hour
)

func (b *DefaultBookingService) usdcPollInterval() time.Duration {
	if b.USDCPollInterval > 0 {
		return b.USDCPollInterval
	}
	return defaultUSDCPollInterval
}

func (b *DefaultBookingService) chainPollInterval() time.Duration {
	if b.ChainPollInterval > 0 {
		return b.ChainPollInterval
	}
	return defaultChainPollInterval
}

func (b *DefaultBookingService) pollTimeout() time.Duration {
	if b.PollTimeout > 0 {
		return b.PollTimeout
	}
	return defaultPollTimeout
}
