package flights

import (
	"context"

	"flai/models"
)

// SearchParams are the inputs to a flight-offers search.
type SearchParams struct {
	OriginCode      string
	DestinationCode string
	DepartureDate   string
	ReturnDate      string
	Adults          int
	TravelClass     string
}

// Service is the external flight-offer provider.
type Service interface {
	// LocationCode resolves a free-text city name to its IATA code, empty
	// when nothing matches.
	LocationCode(ctx context.Context, city string) (string, error)
	// Search returns flight offers ordered by the provider, empty on no match.
	Search(ctx context.Context, params SearchParams) ([]models.FlightOffer, error)
	// AirlineName resolves a carrier code to a display name, best effort.
	AirlineName(ctx context.Context, carrierCode string) (string, error)
}
