package booking

import (
	"fmt"
	"strings"

	"flai/models"
)

// FareClasses is the fixed set of cabin classes the dialog accepts.
var FareClasses = []string{"ECONOMY", "PREMIUM_ECONOMY", "BUSINESS", "FIRST"}

const (
	msgReset            = "No problem, let's start fresh! Where would you like to fly?"
	msgApology          = "Sorry, something went wrong on my end. Let's start over — where would you like to fly?"
	msgFallback         = "Sorry, I didn't catch that. Could you rephrase?"
	msgExtractionRetry  = "I couldn't quite piece the trip details together. Could you tell me the origin, destination, dates and number of travelers once more?"
	msgNamesPromptFmt   = "Got it! Please send the full names of all %d travelers, as they appear on their travel documents."
	msgNamesRetryFmt    = "I need exactly %d full names, one per traveler. Please send them again."
	msgClassInvalid     = "I didn't recognize that cabin class."
	msgConfirmPrompt    = "Shall I go ahead and search with these details? You can also correct anything first."
	msgSearchStarted    = "Great, I'm searching for flights now. This can take a moment — I'll message you as soon as I have options!"
	msgStillSearching   = "I'm still searching for flights — hang tight, I'll message you the moment I have results."
	msgPaymentPrompt    = "How would you like to pay?\n- \"card\" for a secure card checkout\n- \"usdc\" to pay with USDC\n- \"circle layer\" to pay on the Circle Layer chain"
	msgAwaitingPayment  = "I'm waiting for your payment to come through. I'll confirm your booking the moment it lands!"
	msgAlreadyConfirmed = "Your booking is already confirmed! Say \"start over\" if you'd like to plan another trip."
	msgDetailsUpdated   = "Thanks, I've updated your details."

	msgSelectionInvalidFmt = "That's not a valid selection. Reply with a number between 1 and %d, or \"cancel\" to start over."
)

func classPrompt() string {
	var sb strings.Builder
	sb.WriteString("Which cabin class would you like?\n")
	for _, class := range FareClasses {
		sb.WriteString("- ")
		sb.WriteString(displayClass(class))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// matchFareClass matches user input against the fare classes, tolerating
// case and space-vs-underscore differences.
func matchFareClass(text string) (string, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(text), " ", "_"))
	for _, class := range FareClasses {
		if normalized == class {
			return class, true
		}
	}
	return "", false
}

func displayClass(class string) string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(class, "_", " ")))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func renderSummary(d models.FlightDetails) string {
	var sb strings.Builder
	sb.WriteString("Here's what I have:\n")
	sb.WriteString(fmt.Sprintf("- From: %s\n", d.Origin))
	sb.WriteString(fmt.Sprintf("- To: %s\n", d.Destination))
	sb.WriteString(fmt.Sprintf("- Departure: %s\n", d.DepartureDate))
	if d.ReturnDate != "" {
		sb.WriteString(fmt.Sprintf("- Return: %s\n", d.ReturnDate))
	}
	sb.WriteString(fmt.Sprintf("- Travelers: %d\n", d.NumberOfTravelers))
	if len(d.TravelerNames) > 0 {
		sb.WriteString(fmt.Sprintf("- Names: %s\n", strings.Join(d.TravelerNames, ", ")))
	}
	if d.TravelClass != "" {
		sb.WriteString(fmt.Sprintf("- Class: %s\n", displayClass(d.TravelClass)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatOffers(offers []models.FlightOffer) string {
	var sb strings.Builder
	sb.WriteString("I found a few options for you:\n\n")
	for i, offer := range offers {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, offerLine(offer)))
	}
	sb.WriteString("\nReply with the number of the flight you'd like to book, or \"cancel\" to start over.")
	return sb.String()
}

func offerLine(offer models.FlightOffer) string {
	airline := offer.AirlineName
	if airline == "" && len(offer.Itineraries) > 0 && len(offer.Itineraries[0].Segments) > 0 {
		airline = offer.Itineraries[0].Segments[0].CarrierCode
	}
	route := routeSummary(offer)
	if route != "" {
		return fmt.Sprintf("%s, %s — %s %s", airline, route, offer.Price.Total, offer.Price.Currency)
	}
	return fmt.Sprintf("%s — %s %s", airline, offer.Price.Total, offer.Price.Currency)
}

func routeSummary(offer models.FlightOffer) string {
	if len(offer.Itineraries) == 0 || len(offer.Itineraries[0].Segments) == 0 {
		return ""
	}
	segs := offer.Itineraries[0].Segments
	stops := len(segs) - 1
	leg := fmt.Sprintf("%s → %s", segs[0].Departure.IATACode, segs[len(segs)-1].Arrival.IATACode)
	if stops == 0 {
		return leg + " (direct)"
	}
	return fmt.Sprintf("%s (%d stop(s))", leg, stops)
}

func offerChosen(offer models.FlightOffer) string {
	return fmt.Sprintf("Good choice! That's %s.", offerLine(offer))
}
