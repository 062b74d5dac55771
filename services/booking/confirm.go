package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flai/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Payment rails recorded on the archived booking.
const (
	railCard  = "card"
	railUSDC  = "usdc"
	railChain = "circle_layer"
)

// HandleSuccessfulPayment is the card-webhook settlement trigger. A returned
// error surfaces as a 5xx so the provider redelivers the event.
func (b *DefaultBookingService) HandleSuccessfulPayment(ctx context.Context, userID string) error {
	_, err := b.reconcile(ctx, userID, railCard)
	return err
}

// reconcile finalizes a paid booking: render one itinerary per traveler,
// deliver them, archive the booking, and park the session on the terminal
// state. It is invoked from three uncoordinated triggers and must tolerate
// repeat invocations; a second call re-sends the artifacts, which is
// acceptable duplication rather than corruption. A session-load failure is
// an error so the trigger can retry; a loaded session with no offer on file
// settles nothing and reports false.
func (b *DefaultBookingService) reconcile(ctx context.Context, userID, rail string) (bool, error) {
	sess, err := b.Sessions.Load(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load session for settlement of %s: %w", userID, err)
	}
	if len(sess.FlightOffers) == 0 {
		b.Logger.Warn("payment settled with no offer on file, aborting",
			zap.String("user", userID), zap.String("rail", rail))
		return false, nil
	}
	offer := sess.FlightOffers[0]

	travelers := sess.FlightDetails.TravelerNames
	if len(travelers) == 0 {
		travelers = []string{"Passenger"}
	}

	reference := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])

	for _, name := range travelers {
		document, err := b.PDF.RenderItinerary(offer, name)
		if err != nil {
			b.Logger.Error("itinerary render failed",
				zap.String("user", userID), zap.String("traveler", name), zap.Error(err))
			continue
		}
		filename := fmt.Sprintf("itinerary_%s.pdf", sanitizeFilename(name))
		if err := b.Messenger.SendDocument(ctx, userID, filename, document); err != nil {
			b.Logger.Error("itinerary delivery failed",
				zap.String("user", userID), zap.String("traveler", name), zap.Error(err))
		}
	}

	confirmation := fmt.Sprintf("Your booking is confirmed! 🎉\nReference: %s\n%s\n\nYour itineraries are attached above. Safe travels!",
		reference, offerLine(offer))
	if err := b.Messenger.SendText(ctx, userID, confirmation); err != nil {
		b.Logger.Error("confirmation delivery failed", zap.String("user", userID), zap.Error(err))
	}

	record := models.Booking{
		Reference:     reference,
		UserID:        userID,
		Offer:         offer,
		TravelerNames: travelers,
		PaymentRail:   rail,
		CreatedAt:     time.Now().UTC(),
	}
	if err := b.Bookings.Insert(ctx, record); err != nil {
		b.Logger.Error("booking archive failed", zap.String("user", userID), zap.Error(err))
	}

	if err := b.Sessions.SetState(ctx, userID, models.StateBookingConfirmed); err != nil {
		return false, fmt.Errorf("mark booking confirmed for %s: %w", userID, err)
	}
	return true, nil
}

func sanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	if cleaned == "" {
		return "traveler"
	}
	return cleaned
}
