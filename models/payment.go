package models

import (
	"math/big"
	"time"
)

// SettlementAttempt tracks one outstanding on-chain payment request. The
// baseline balance recorded at creation is what lets the poller distinguish a
// new deposit from funds left over on a previously used address.
type SettlementAttempt struct {
	Address        string    `json:"address"`
	InitialBalance *big.Int  `json:"initial_balance"`
	ExpectedAmount *big.Int  `json:"expected_amount"`
	AddressIndex   uint64    `json:"address_index"`
	CreatedAt      time.Time `json:"created_at"`
}

// Target returns the confirmed balance at which the attempt is considered paid.
func (a SettlementAttempt) Target() *big.Int {
	return new(big.Int).Add(a.InitialBalance, a.ExpectedAmount)
}

// Booking is the durable record archived once a payment settles.
type Booking struct {
	Reference     string      `bson:"reference" json:"reference"`
	UserID        string      `bson:"userId" json:"userId"`
	Offer         FlightOffer `bson:"offer" json:"offer"`
	TravelerNames []string    `bson:"travelerNames" json:"travelerNames"`
	PaymentRail   string      `bson:"paymentRail" json:"paymentRail"`
	CreatedAt     time.Time   `bson:"createdAt" json:"createdAt"`
}
