package payments

import (
	"context"
	"fmt"
	"strconv"

	"flai/config"
	"flai/models"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// CheckoutService produces hosted card checkout links for selected offers.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, offer models.FlightOffer, userID string) (string, error)
}

// StripeCheckoutService implements CheckoutService on Stripe Checkout. The
// user ID rides along as the client reference so the completion webhook can
// find the session to settle.
type StripeCheckoutService struct {
	logger *zap.Logger
}

func NewStripeCheckoutService(logger *zap.Logger) *StripeCheckoutService {
	return &StripeCheckoutService{logger: logger}
}

func (s *StripeCheckoutService) CreateCheckoutSession(ctx context.Context, offer models.FlightOffer, userID string) (string, error) {
	total, err := strconv.ParseFloat(offer.Price.Total, 64)
	if err != nil {
		return "", fmt.Errorf("parse offer price %q: %w", offer.Price.Total, err)
	}

	baseURL := config.AppConfig.BaseURL
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(offer.Price.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Flight to %s", offer.Destination())),
					},
					UnitAmount: stripe.Int64(int64(total * 100)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(baseURL + "/payment-success"),
		CancelURL:         stripe.String(baseURL + "/payment-cancelled"),
		ClientReferenceID: stripe.String(userID),
	}
	params.Context = ctx

	session, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe checkout session: %w", err)
	}
	return session.URL, nil
}
