package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"flai/models"

	"go.uber.org/zap"
)

// TextGenerator is the single call this service needs from the model client.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// DefaultAIService turns free text into structured trip slots via Gemini.
type DefaultAIService struct {
	Client TextGenerator
	Logger *zap.Logger
	// Now is injected so date-relative prompts are testable.
	Now func() time.Time
}

func NewDefaultAIService(client TextGenerator, logger *zap.Logger) *DefaultAIService {
	return &DefaultAIService{Client: client, Logger: logger, Now: time.Now}
}

const gatheringPrompt = `You are Flai, a friendly flight booking assistant. Collect the following
details from the user over the conversation: origin city, destination city, departure date,
and number of travelers. Ask for at most one missing detail per reply and keep replies short.
When every detail has been provided, summarize them all in one message and append the literal
token %s at the end. Today's date is %s.

Conversation so far:
%s
User: %s
Assistant:`

const confirmationPrompt = `You are Flai, a flight booking assistant. The user was shown a summary of
their trip and asked to confirm it. If their reply confirms the details, respond with a short
acknowledgement ending in the literal token %s. If they corrected or changed any detail,
acknowledge the change, restate the corrected details, and end with the literal token %s.
Otherwise answer their question briefly. Today's date is %s.

Conversation so far:
%s
User: %s
Assistant:`

const extractDetailsPrompt = `Extract the flight booking details from this conversation as JSON with
exactly these keys: "origin", "destination", "departure_date", "return_date",
"number_of_travelers" (integer), "travel_class", "traveler_names" (array of strings).
Use "" or 0 or [] for anything not mentioned. Dates should be YYYY-MM-DD where the user was
specific, otherwise the user's own words. Respond with the JSON object only.

Conversation:
%s`

const extractNamesPrompt = `The user was asked for the full names of %d travelers and replied:
%q
Respond with a JSON array of the full names you can identify, in order, and nothing else.
If you cannot identify any names, respond with [].`

// GetAIResponse runs one conversational turn and returns the reply plus the
// updated history. Sentinel markers are left in the reply for the caller.
func (s *DefaultAIService) GetAIResponse(ctx context.Context, message string, history []models.DialogTurn, mode Mode) (string, []models.DialogTurn, error) {
	var prompt string
	today := s.Now().Format("2006-01-02")
	switch mode {
	case ModeConfirmation:
		prompt = fmt.Sprintf(confirmationPrompt, MarkerConfirmed, MarkerDetailsUpdated, today, renderHistory(history), message)
	default:
		prompt = fmt.Sprintf(gatheringPrompt, MarkerInfoComplete, today, renderHistory(history), message)
	}

	reply, err := s.Client.GenerateContent(ctx, prompt)
	if err != nil {
		return "", history, fmt.Errorf("ai response: %w", err)
	}
	reply = strings.TrimSpace(reply)

	updated := append(append([]models.DialogTurn{}, history...),
		models.DialogTurn{Role: "user", Content: message},
		models.DialogTurn{Role: "assistant", Content: reply},
	)
	return reply, updated, nil
}

// ExtractFlightDetails asks the model for the slot map as JSON. Failures are
// soft: the caller receives zero-valued details and the error for logging.
func (s *DefaultAIService) ExtractFlightDetails(ctx context.Context, history []models.DialogTurn) (models.FlightDetails, error) {
	raw, err := s.Client.GenerateContent(ctx, fmt.Sprintf(extractDetailsPrompt, renderHistory(history)))
	if err != nil {
		return models.FlightDetails{}, fmt.Errorf("extract flight details: %w", err)
	}

	var details models.FlightDetails
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &details); err != nil {
		s.Logger.Warn("flight detail extraction returned malformed JSON", zap.Error(err))
		return models.FlightDetails{}, fmt.Errorf("extract flight details: %w", err)
	}
	return details, nil
}

// ExtractTravelerNames pulls traveler names out of a free-text reply. The
// caller validates the count; an unparseable reply yields an empty slice.
func (s *DefaultAIService) ExtractTravelerNames(ctx context.Context, message string, count int) ([]string, error) {
	raw, err := s.Client.GenerateContent(ctx, fmt.Sprintf(extractNamesPrompt, count, message))
	if err != nil {
		return nil, fmt.Errorf("extract traveler names: %w", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &names); err != nil {
		s.Logger.Warn("traveler name extraction returned malformed JSON", zap.Error(err))
		return []string{}, nil
	}
	return names, nil
}

func renderHistory(history []models.DialogTurn) string {
	var sb strings.Builder
	for _, turn := range history {
		sb.WriteString(turn.Role)
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// stripCodeFences removes the ```json fences Gemini tends to wrap around
// structured output.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
