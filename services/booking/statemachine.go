package booking

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"flai/models"
	ai "flai/services/intelligence"

	"go.uber.org/zap"
)

// turnResult is the outcome of one state handler. Handlers that must persist
// the session before dispatching a background task set saved; everyone else
// leaves the final write to ProcessMessage.
type turnResult struct {
	replies []string
	saved   bool
}

// ProcessMessage consumes one inbound user message and returns the outbound
// replies. The session write is a full overwrite of the copy loaded at the
// top of the turn; concurrent writers race under last-writer-wins.
func (b *DefaultBookingService) ProcessMessage(ctx context.Context, userID, text string) ([]string, error) {
	sess, err := b.Sessions.Load(ctx, userID)
	if err != nil {
		b.Logger.Warn("session load failed, running turn on a default session",
			zap.String("user", userID), zap.Error(err))
	}

	// A running search owns the session; a typed reset would race the task
	// that is about to write results, so it waits until the search lands.
	if isResetCommand(text) && sess.State != models.StateSearchInProgress {
		sess = models.NewSession()
		if err := b.Sessions.Save(ctx, userID, sess); err != nil {
			b.Logger.Error("session reset save failed", zap.String("user", userID), zap.Error(err))
		}
		return []string{msgReset}, nil
	}

	var result turnResult
	switch sess.State {
	case models.StateGatheringInfo:
		result = b.handleGatheringInfo(ctx, &sess, text)
	case models.StateGatheringNames:
		result = b.handleGatheringNames(ctx, &sess, text)
	case models.StateAwaitingClassSelection:
		result = b.handleClassSelection(&sess, text)
	case models.StateAwaitingConfirmation:
		result = b.handleConfirmation(ctx, userID, &sess, text)
	case models.StateSearchInProgress:
		result = turnResult{replies: []string{msgStillSearching}}
	case models.StateFlightSelection:
		result = b.handleFlightSelection(&sess, text)
	case models.StateAwaitingPaymentSelect:
		result = b.handlePaymentSelection(ctx, userID, &sess, text)
	case models.StateBookingConfirmed:
		result = turnResult{replies: []string{msgAlreadyConfirmed}}
	default:
		if sess.State.AwaitingSettlement() {
			// Only the settlement path moves these states forward.
			result = turnResult{replies: []string{msgAwaitingPayment}}
			break
		}
		b.Logger.Error("session carries unknown state, resetting",
			zap.String("user", userID), zap.String("state", string(sess.State)))
		sess = models.NewSession()
		result = turnResult{replies: []string{msgReset}}
	}

	if !result.saved {
		if err := b.Sessions.Save(ctx, userID, sess); err != nil {
			b.Logger.Error("session save failed", zap.String("user", userID), zap.Error(err))
		}
	}
	if len(result.replies) == 0 {
		result.replies = []string{msgFallback}
	}
	return result.replies, nil
}

// recoverTurn is the shared failure path for unreachable collaborators: the
// user gets an apology and a clean slate instead of a stuck session.
func (b *DefaultBookingService) recoverTurn(sess *models.Session, err error, what string) turnResult {
	b.Logger.Error(what+" failed, resetting session", zap.Error(err))
	*sess = models.NewSession()
	return turnResult{replies: []string{msgApology}}
}

func (b *DefaultBookingService) handleGatheringInfo(ctx context.Context, sess *models.Session, text string) turnResult {
	reply, history, err := b.AI.GetAIResponse(ctx, text, sess.ConversationHistory, ai.ModeGathering)
	if err != nil {
		return b.recoverTurn(sess, err, "assistant call")
	}
	sess.ConversationHistory = history

	if !strings.Contains(reply, ai.MarkerInfoComplete) {
		return turnResult{replies: []string{reply}}
	}

	details, err := b.AI.ExtractFlightDetails(ctx, sess.ConversationHistory)
	if err != nil || !details.Complete() {
		if err != nil {
			b.Logger.Warn("detail extraction failed after completion marker", zap.Error(err))
		}
		return turnResult{replies: []string{msgExtractionRetry}}
	}
	sess.FlightDetails = details

	replies := []string{}
	if visible := stripMarkers(reply); visible != "" {
		replies = append(replies, visible)
	}

	if details.NumberOfTravelers > 1 {
		sess.State = models.StateGatheringNames
		replies = append(replies, fmt.Sprintf(msgNamesPromptFmt, details.NumberOfTravelers))
		return turnResult{replies: replies}
	}
	sess.State = models.StateAwaitingClassSelection
	replies = append(replies, classPrompt())
	return turnResult{replies: replies}
}

func (b *DefaultBookingService) handleGatheringNames(ctx context.Context, sess *models.Session, text string) turnResult {
	count := sess.FlightDetails.NumberOfTravelers
	names, err := b.AI.ExtractTravelerNames(ctx, text, count)
	if err != nil {
		return b.recoverTurn(sess, err, "traveler name extraction")
	}
	if len(names) != count {
		return turnResult{replies: []string{fmt.Sprintf(msgNamesRetryFmt, count)}}
	}
	sess.FlightDetails.TravelerNames = names
	sess.State = models.StateAwaitingClassSelection
	return turnResult{replies: []string{classPrompt()}}
}

func (b *DefaultBookingService) handleClassSelection(sess *models.Session, text string) turnResult {
	class, ok := matchFareClass(text)
	if !ok {
		return turnResult{replies: []string{msgClassInvalid, classPrompt()}}
	}
	sess.FlightDetails.TravelClass = class
	sess.State = models.StateAwaitingConfirmation
	return turnResult{replies: []string{renderSummary(sess.FlightDetails), msgConfirmPrompt}}
}

func (b *DefaultBookingService) handleConfirmation(ctx context.Context, userID string, sess *models.Session, text string) turnResult {
	reply, history, err := b.AI.GetAIResponse(ctx, text, sess.ConversationHistory, ai.ModeConfirmation)
	if err != nil {
		return b.recoverTurn(sess, err, "assistant call")
	}
	sess.ConversationHistory = history

	switch {
	case strings.Contains(reply, ai.MarkerConfirmed):
		now := time.Now()
		sess.FlightDetails.DepartureDate = normalizeDate(sess.FlightDetails.DepartureDate, now)
		if sess.FlightDetails.ReturnDate != "" {
			sess.FlightDetails.ReturnDate = normalizeDate(sess.FlightDetails.ReturnDate, now)
		}
		sess.State = models.StateSearchInProgress
		// The search task owns the session from here on; the state marking
		// that ownership must be durable before the task is enqueued.
		if err := b.Sessions.Save(ctx, userID, *sess); err != nil {
			b.Logger.Error("session save before search dispatch failed",
				zap.String("user", userID), zap.Error(err))
		}
		if err := b.Tasks.DispatchFlightSearch(ctx, userID, sess.FlightDetails); err != nil {
			return b.recoverTurn(sess, err, "search dispatch")
		}
		return turnResult{replies: []string{msgSearchStarted}, saved: true}

	case strings.Contains(reply, ai.MarkerDetailsUpdated):
		details, err := b.AI.ExtractFlightDetails(ctx, sess.ConversationHistory)
		if err != nil || !details.Complete() {
			if err != nil {
				b.Logger.Warn("re-extraction after correction failed", zap.Error(err))
			}
			return turnResult{replies: []string{msgExtractionRetry}}
		}
		// The corrected slot map replaces the old one wholesale; a correction
		// that drops the fare class sends the user back to pick one.
		sess.FlightDetails = details
		if details.TravelClass == "" {
			sess.State = models.StateAwaitingClassSelection
			return turnResult{replies: []string{msgDetailsUpdated, classPrompt()}}
		}
		return turnResult{replies: []string{msgDetailsUpdated, renderSummary(sess.FlightDetails), msgConfirmPrompt}}

	default:
		return turnResult{replies: []string{reply}}
	}
}

func (b *DefaultBookingService) handleFlightSelection(sess *models.Session, text string) turnResult {
	trimmed := strings.TrimSpace(text)
	if isCancelCommand(trimmed) {
		*sess = models.NewSession()
		return turnResult{replies: []string{msgReset}}
	}

	idx, err := strconv.Atoi(trimmed)
	if err != nil || idx < 1 || idx > len(sess.FlightOffers) {
		return turnResult{replies: []string{fmt.Sprintf(msgSelectionInvalidFmt, len(sess.FlightOffers))}}
	}

	selected := sess.FlightOffers[idx-1]
	sess.FlightOffers = []models.FlightOffer{selected}
	sess.State = models.StateAwaitingPaymentSelect
	return turnResult{replies: []string{offerChosen(selected), msgPaymentPrompt}}
}

func isResetCommand(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "start over", "restart", "reset":
		return true
	}
	return false
}

func isCancelCommand(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "cancel")
}

func stripMarkers(reply string) string {
	for _, marker := range []string{ai.MarkerInfoComplete, ai.MarkerConfirmed, ai.MarkerDetailsUpdated} {
		reply = strings.ReplaceAll(reply, marker, "")
	}
	return strings.TrimSpace(reply)
}
