package booking

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"flai/models"

	"go.uber.org/zap"
)

// usdcDecimals is the token's smallest-unit scale.
const usdcDecimals = 6

func (b *DefaultBookingService) handlePaymentSelection(ctx context.Context, userID string, sess *models.Session, text string) turnResult {
	if len(sess.FlightOffers) == 0 {
		b.Logger.Error("payment selection with no stored offer", zap.String("user", userID))
		*sess = models.NewSession()
		return turnResult{replies: []string{msgApology}}
	}
	offer := sess.FlightOffers[0]

	switch normalizePaymentChoice(text) {
	case "card":
		return b.startCardCheckout(ctx, userID, sess, offer)
	case "usdc":
		return b.startUSDCPayment(ctx, userID, sess, offer)
	case "chain":
		return b.startChainPayment(ctx, userID, sess, offer)
	default:
		return turnResult{replies: []string{msgPaymentPrompt}}
	}
}

func normalizePaymentChoice(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(normalized, "card"):
		return "card"
	case strings.Contains(normalized, "usdc"), strings.Contains(normalized, "stablecoin"):
		return "usdc"
	case strings.Contains(normalized, "circle layer"), strings.Contains(normalized, "chain"), strings.Contains(normalized, "crypto"):
		return "chain"
	}
	return ""
}

func (b *DefaultBookingService) startCardCheckout(ctx context.Context, userID string, sess *models.Session, offer models.FlightOffer) turnResult {
	checkoutURL, err := b.Checkout.CreateCheckoutSession(ctx, offer, userID)
	if err != nil {
		return b.recoverTurn(sess, err, "card checkout")
	}
	sess.State = models.StateAwaitingPayment
	reply := fmt.Sprintf("Pay securely by card here:\n%s\n\nI'll confirm your booking as soon as the payment goes through.", checkoutURL)
	return turnResult{replies: []string{reply}}
}

func (b *DefaultBookingService) startUSDCPayment(ctx context.Context, userID string, sess *models.Session, offer models.FlightOffer) turnResult {
	amountUSD, err := b.offerAmountUSD(ctx, offer)
	if err != nil {
		return b.recoverTurn(sess, err, "currency conversion")
	}
	intent, err := b.Circle.CreatePaymentIntent(ctx, amountUSD)
	if err != nil {
		return b.recoverTurn(sess, err, "payment intent creation")
	}

	sess.FlightDetails.PaymentIntentID = intent.ID
	sess.FlightDetails.DepositAddress = intent.DepositAddress
	sess.FlightDetails.AmountUSD = amountUSD
	sess.State = models.StateAwaitingUSDCPayment
	if err := b.Sessions.Save(ctx, userID, *sess); err != nil {
		b.Logger.Error("session save before usdc poll dispatch failed",
			zap.String("user", userID), zap.Error(err))
	}
	if err := b.Tasks.DispatchUSDCPoll(ctx, userID, intent.ID); err != nil {
		return b.recoverTurn(sess, err, "usdc poll dispatch")
	}

	reply := fmt.Sprintf("Send exactly %s USDC to this deposit address:\n%s\n\nI'll watch for the payment and confirm your booking automatically.",
		amountUSD, intent.DepositAddress)
	return turnResult{replies: []string{reply}, saved: true}
}

func (b *DefaultBookingService) startChainPayment(ctx context.Context, userID string, sess *models.Session, offer models.FlightOffer) turnResult {
	amountUSD, err := b.offerAmountUSD(ctx, offer)
	if err != nil {
		return b.recoverTurn(sess, err, "currency conversion")
	}
	expected, err := usdcUnits(amountUSD)
	if err != nil {
		return b.recoverTurn(sess, err, "amount parsing")
	}

	index, err := b.Settlements.NextAddressIndex(ctx)
	if err != nil {
		return b.recoverTurn(sess, err, "address index allocation")
	}
	address, err := b.Chain.DeriveDepositAddress(index)
	if err != nil {
		return b.recoverTurn(sess, err, "deposit address derivation")
	}
	baseline, err := b.Chain.TokenBalance(ctx, address)
	if err != nil {
		return b.recoverTurn(sess, err, "baseline balance read")
	}

	attempt := models.SettlementAttempt{
		Address:        address,
		InitialBalance: baseline,
		ExpectedAmount: expected,
		AddressIndex:   index,
		CreatedAt:      time.Now().UTC(),
	}
	if err := b.Settlements.SaveAttempt(ctx, userID, attempt); err != nil {
		return b.recoverTurn(sess, err, "settlement attempt save")
	}

	sess.FlightDetails.DepositAddress = address
	sess.FlightDetails.AmountUSD = amountUSD
	sess.State = models.StateAwaitingChainPayment
	if err := b.Sessions.Save(ctx, userID, *sess); err != nil {
		b.Logger.Error("session save before chain poll dispatch failed",
			zap.String("user", userID), zap.Error(err))
	}
	if err := b.Tasks.DispatchChainPoll(ctx, userID); err != nil {
		return b.recoverTurn(sess, err, "chain poll dispatch")
	}

	reply := fmt.Sprintf("Send exactly %s USDC on Circle Layer to this deposit address:\n%s\n\nI'll watch the chain and confirm your booking once the deposit is confirmed.",
		amountUSD, address)
	return turnResult{replies: []string{reply}, saved: true}
}

// offerAmountUSD converts the offer's total into a two-decimal USD string.
func (b *DefaultBookingService) offerAmountUSD(ctx context.Context, offer models.FlightOffer) (string, error) {
	total, err := strconv.ParseFloat(offer.Price.Total, 64)
	if err != nil {
		return "", fmt.Errorf("parse offer price %q: %w", offer.Price.Total, err)
	}
	converted, err := b.Currency.ConvertToUSD(ctx, total, offer.Price.Currency)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(converted, 'f', 2, 64), nil
}

// usdcUnits converts a decimal USD string into the token's smallest unit.
func usdcUnits(amount string) (*big.Int, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(amount), ".")
	if len(frac) > usdcDecimals {
		frac = frac[:usdcDecimals]
	}
	frac += strings.Repeat("0", usdcDecimals-len(frac))
	if whole == "" {
		whole = "0"
	}
	units, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid usd amount %q", amount)
	}
	return units, nil
}
