package ai

import (
	"context"

	"flai/models"
)

// Mode selects which conversation prompt drives a turn.
type Mode string

const (
	// ModeGathering collects trip slots and emits MarkerInfoComplete once all
	// required details have been provided.
	ModeGathering Mode = "gathering"
	// ModeConfirmation asks the user to confirm the summary and emits
	// MarkerConfirmed or MarkerDetailsUpdated.
	ModeConfirmation Mode = "confirmation"
)

// Sentinel markers the state machine matches literally in model replies.
const (
	MarkerInfoComplete   = "[INFO_COMPLETE]"
	MarkerConfirmed      = "[CONFIRMED]"
	MarkerDetailsUpdated = "[DETAILS_UPDATED]"
)

// Service is the conversational extraction collaborator. Replies may carry
// sentinel markers; structured extraction is best effort and returns zero
// values rather than failing the dialog.
type Service interface {
	GetAIResponse(ctx context.Context, message string, history []models.DialogTurn, mode Mode) (string, []models.DialogTurn, error)
	ExtractFlightDetails(ctx context.Context, history []models.DialogTurn) (models.FlightDetails, error)
	ExtractTravelerNames(ctx context.Context, message string, count int) ([]string, error)
}
