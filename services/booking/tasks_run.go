package booking

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"flai/models"
	"flai/services/flights"

	"go.uber.org/zap"
)

const (
	msgNoFlights     = "I couldn't find any flights for those details. Let's try again — where would you like to fly?"
	msgSearchFailure = "I hit a problem while searching for flights. Let's try again — where would you like to fly?"
)

// RunFlightSearch is the body of the dispatched search task. It owns the
// outbound delivery: the request that enqueued it has already returned.
func (b *DefaultBookingService) RunFlightSearch(ctx context.Context, userID string, details models.FlightDetails) error {
	originCode, err := b.resolveLocation(ctx, details.Origin)
	if err != nil || originCode == "" {
		return b.failSearch(ctx, userID, fmt.Errorf("resolve origin %q: %w", details.Origin, err))
	}
	destinationCode, err := b.resolveLocation(ctx, details.Destination)
	if err != nil || destinationCode == "" {
		return b.failSearch(ctx, userID, fmt.Errorf("resolve destination %q: %w", details.Destination, err))
	}

	adults := details.NumberOfTravelers
	if adults < 1 {
		adults = 1
	}
	offers := b.Flights.SearchWithRetry(ctx, flights.SearchParams{
		OriginCode:      originCode,
		DestinationCode: destinationCode,
		DepartureDate:   details.DepartureDate,
		ReturnDate:      details.ReturnDate,
		Adults:          adults,
		TravelClass:     details.TravelClass,
	})
	if len(offers) == 0 {
		return b.finishSearch(ctx, userID, nil, msgNoFlights)
	}

	b.enrichAirlineNames(ctx, offers)
	return b.finishSearch(ctx, userID, offers, formatOffers(offers))
}

func (b *DefaultBookingService) failSearch(ctx context.Context, userID string, err error) error {
	b.Logger.Warn("flight search task failed", zap.String("user", userID), zap.Error(err))
	return b.finishSearch(ctx, userID, nil, msgSearchFailure)
}

// finishSearch writes the post-search session and delivers the result. An
// empty offer set sends the user back to gathering; a populated one parks
// them on selection.
func (b *DefaultBookingService) finishSearch(ctx context.Context, userID string, offers []models.FlightOffer, message string) error {
	sess, err := b.Sessions.Load(ctx, userID)
	if err != nil {
		b.Logger.Warn("session load in search task failed", zap.String("user", userID), zap.Error(err))
	}

	if len(offers) == 0 {
		sess.State = models.StateGatheringInfo
		sess.FlightOffers = []models.FlightOffer{}
	} else {
		sess.State = models.StateFlightSelection
		sess.FlightOffers = offers
	}
	if err := b.Sessions.Save(ctx, userID, sess); err != nil {
		b.Logger.Error("session save in search task failed", zap.String("user", userID), zap.Error(err))
	}
	return b.Messenger.SendText(ctx, userID, message)
}

// resolveLocation accepts an IATA code as-is and resolves anything else
// through the flight provider's location lookup.
func (b *DefaultBookingService) resolveLocation(ctx context.Context, place string) (string, error) {
	trimmed := strings.TrimSpace(place)
	if looksLikeIATACode(trimmed) {
		return strings.ToUpper(trimmed), nil
	}
	return b.Flights.Service.LocationCode(ctx, trimmed)
}

func looksLikeIATACode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func (b *DefaultBookingService) enrichAirlineNames(ctx context.Context, offers []models.FlightOffer) {
	names := map[string]string{}
	for i := range offers {
		if len(offers[i].Itineraries) == 0 || len(offers[i].Itineraries[0].Segments) == 0 {
			continue
		}
		code := offers[i].Itineraries[0].Segments[0].CarrierCode
		name, ok := names[code]
		if !ok {
			resolved, err := b.Flights.Service.AirlineName(ctx, code)
			if err != nil {
				b.Logger.Debug("airline name lookup failed", zap.String("carrier", code), zap.Error(err))
				resolved = code
			}
			names[code] = resolved
			name = resolved
		}
		offers[i].AirlineName = name
	}
}

// RunUSDCPoll polls the payment intent until it completes or the window
// closes. A timeout is silent: the booking stays pending.
func (b *DefaultBookingService) RunUSDCPoll(ctx context.Context, userID, intentID string) error {
	deadline := time.Now().Add(b.pollTimeout())
	ticker := time.NewTicker(b.usdcPollInterval())
	defer ticker.Stop()

	for {
		status, err := b.Circle.PaymentIntentStatus(ctx, intentID)
		if err != nil {
			b.Logger.Warn("usdc status poll failed", zap.String("user", userID), zap.Error(err))
		} else if status == "complete" || status == "paid" {
			settled, err := b.reconcile(ctx, userID, railUSDC)
			if err != nil {
				b.Logger.Warn("usdc settlement failed, retrying next tick",
					zap.String("user", userID), zap.Error(err))
			} else {
				if !settled {
					b.Logger.Warn("usdc payment complete with nothing to settle",
						zap.String("user", userID), zap.String("intent", intentID))
				}
				return nil
			}
		}

		if time.Now().After(deadline) {
			b.Logger.Info("usdc poll window closed without payment",
				zap.String("user", userID), zap.String("intent", intentID))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunChainPoll watches the deposit address recorded in the settlement
// attempt. It fires only on a confirmed balance at or above the attempt's
// target, never on a bare positive balance.
func (b *DefaultBookingService) RunChainPoll(ctx context.Context, userID string) error {
	deadline := time.Now().Add(b.pollTimeout())
	ticker := time.NewTicker(b.chainPollInterval())
	defer ticker.Stop()

	for {
		attempt, err := b.Settlements.LoadAttempt(ctx, userID)
		if err != nil {
			b.Logger.Warn("settlement attempt load failed", zap.String("user", userID), zap.Error(err))
		} else if attempt == nil {
			// Expired or superseded; nothing left to watch.
			b.Logger.Info("chain poll found no settlement attempt", zap.String("user", userID))
			return nil
		} else {
			settled, err := b.checkChainSettlement(ctx, userID, attempt)
			if err != nil {
				b.Logger.Warn("chain balance poll failed", zap.String("user", userID), zap.Error(err))
			} else if settled {
				return nil
			}
		}

		if time.Now().After(deadline) {
			b.Logger.Info("chain poll window closed without payment", zap.String("user", userID))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *DefaultBookingService) checkChainSettlement(ctx context.Context, userID string, attempt *models.SettlementAttempt) (bool, error) {
	balance, err := b.Chain.TokenBalance(ctx, attempt.Address)
	if err != nil {
		return false, err
	}
	if balance.Cmp(attempt.Target()) < 0 {
		return false, nil
	}

	if events, err := b.Chain.TransferEvents(ctx, attempt.Address, 0); err == nil {
		for _, ev := range events {
			b.Logger.Info("deposit transfer observed",
				zap.String("user", userID),
				zap.String("tx", ev.TxHash.Hex()),
				zap.String("value", ev.Value.String()))
		}
	}

	settled, err := b.reconcile(ctx, userID, railChain)
	if err != nil {
		return false, err
	}
	if !settled {
		// Balance reached target but the session carries no offer. Keep the
		// attempt in place instead of consuming it; a later tick retries.
		return false, nil
	}
	if err := b.Settlements.DeleteAttempt(ctx, userID); err != nil {
		b.Logger.Warn("settlement attempt cleanup failed", zap.String("user", userID), zap.Error(err))
	}
	return true, nil
}
