package models

// FlightOffer mirrors the subset of the Amadeus flight-offers payload the
// agent displays and books. Offers are kept opaque beyond these fields.
type FlightOffer struct {
	ID          string      `json:"id,omitempty" bson:"id,omitempty"`
	AirlineName string      `json:"airlineName,omitempty" bson:"airlineName,omitempty"`
	Itineraries []Itinerary `json:"itineraries" bson:"itineraries"`
	Price       Price       `json:"price" bson:"price"`
}

type Itinerary struct {
	Duration string    `json:"duration,omitempty" bson:"duration,omitempty"`
	Segments []Segment `json:"segments" bson:"segments"`
}

type Segment struct {
	Departure   FlightPoint `json:"departure" bson:"departure"`
	Arrival     FlightPoint `json:"arrival" bson:"arrival"`
	CarrierCode string      `json:"carrierCode" bson:"carrierCode"`
	Number      string      `json:"number,omitempty" bson:"number,omitempty"`
}

type FlightPoint struct {
	IATACode string `json:"iataCode" bson:"iataCode"`
	At       string `json:"at,omitempty" bson:"at,omitempty"`
}

type Price struct {
	Total    string `json:"total" bson:"total"`
	Currency string `json:"currency" bson:"currency"`
}

// Destination returns the arrival airport of the first itinerary, which is
// what offer summaries and checkout line items display.
func (o FlightOffer) Destination() string {
	if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
		return ""
	}
	segs := o.Itineraries[0].Segments
	return segs[len(segs)-1].Arrival.IATACode
}

// FlightDetails carries the slots collected over the dialog. Fields are typed
// rather than kept in a loose map so a missing slot is a zero value, not a
// missing key.
type FlightDetails struct {
	Origin            string   `json:"origin,omitempty"`
	Destination       string   `json:"destination,omitempty"`
	DepartureDate     string   `json:"departure_date,omitempty"`
	ReturnDate        string   `json:"return_date,omitempty"`
	NumberOfTravelers int      `json:"number_of_travelers,omitempty"`
	TravelerNames     []string `json:"traveler_names,omitempty"`
	TravelClass       string   `json:"travel_class,omitempty"`

	// Payment-attempt sub-fields, populated when a rail is selected.
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	DepositAddress  string `json:"deposit_address,omitempty"`
	AmountUSD       string `json:"amount_usd,omitempty"`
}

// Complete reports whether the slots required to run a search are present.
func (d FlightDetails) Complete() bool {
	return d.Origin != "" && d.Destination != "" && d.DepartureDate != "" && d.NumberOfTravelers > 0
}
