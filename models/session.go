package models

// State identifies where a user currently sits in the booking dialog.
// The transition logic in services/booking is the only writer of this value.
type State string

const (
	StateGatheringInfo          State = "GATHERING_INFO"
	StateGatheringNames         State = "GATHERING_NAMES"
	StateAwaitingClassSelection State = "AWAITING_CLASS_SELECTION"
	StateAwaitingConfirmation   State = "AWAITING_CONFIRMATION"
	StateSearchInProgress       State = "SEARCH_IN_PROGRESS"
	StateFlightSelection        State = "FLIGHT_SELECTION"
	StateAwaitingPaymentSelect  State = "AWAITING_PAYMENT_SELECTION"
	StateAwaitingPayment        State = "AWAITING_PAYMENT"
	StateAwaitingUSDCPayment    State = "AWAITING_USDC_PAYMENT"
	StateAwaitingChainPayment   State = "AWAITING_CIRCLE_LAYER_PAYMENT"
	StateBookingConfirmed       State = "BOOKING_CONFIRMED"
)

// Valid reports whether s is one of the enumerated booking states.
func (s State) Valid() bool {
	switch s {
	case StateGatheringInfo, StateGatheringNames, StateAwaitingClassSelection,
		StateAwaitingConfirmation, StateSearchInProgress, StateFlightSelection,
		StateAwaitingPaymentSelect, StateAwaitingPayment, StateAwaitingUSDCPayment,
		StateAwaitingChainPayment, StateBookingConfirmed:
		return true
	}
	return false
}

// AwaitingSettlement reports whether the session is parked on one of the
// payment states that only the settlement path may advance.
func (s State) AwaitingSettlement() bool {
	return s == StateAwaitingPayment || s == StateAwaitingUSDCPayment || s == StateAwaitingChainPayment
}

// DialogTurn is a single entry in the conversation history.
type DialogTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the per-user booking context. The canonical copy lives in Redis;
// every component works on a transient copy obtained from a fresh load and
// writes the whole record back (last writer wins).
type Session struct {
	State               State         `json:"state"`
	ConversationHistory []DialogTurn  `json:"conversation_history"`
	FlightOffers        []FlightOffer `json:"flight_offers"`
	FlightDetails       FlightDetails `json:"flight_details"`
}

// NewSession returns a session in the initial gathering state.
func NewSession() Session {
	return Session{
		State:               StateGatheringInfo,
		ConversationHistory: []DialogTurn{},
		FlightOffers:        []FlightOffer{},
	}
}
