package booking

import (
	"context"
	"math/big"
	"testing"

	"flai/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPaymentSelection(tb *testBooking) {
	sess := models.NewSession()
	sess.State = models.StateAwaitingPaymentSelect
	sess.FlightOffers = []models.FlightOffer{sampleOffer("1")}
	sess.FlightDetails = sampleDetails()
	tb.store.put(testUser, sess)
}

func TestCardSelectionReturnsCheckoutLink(t *testing.T) {
	tb := newTestBooking(t)
	seedPaymentSelection(tb)

	replies, err := tb.svc.ProcessMessage(context.Background(), testUser, "card")
	require.NoError(t, err)

	assert.Equal(t, models.StateAwaitingPayment, tb.store.get(testUser).State)
	assert.Contains(t, replies[0], "https://checkout.example/session")
}

func TestUSDCSelectionCreatesIntentAndDispatchesPoll(t *testing.T) {
	tb := newTestBooking(t)
	seedPaymentSelection(tb)

	replies, err := tb.svc.ProcessMessage(context.Background(), testUser, "usdc")
	require.NoError(t, err)

	saved := tb.store.get(testUser)
	assert.Equal(t, models.StateAwaitingUSDCPayment, saved.State)
	assert.Equal(t, "intent-1", saved.FlightDetails.PaymentIntentID)
	assert.Equal(t, "0xdeposit", saved.FlightDetails.DepositAddress)
	assert.Equal(t, "120.50", saved.FlightDetails.AmountUSD)

	assert.Equal(t, 1, tb.dispatcher.usdcPolls)
	assert.Equal(t, models.StateAwaitingUSDCPayment, tb.dispatcher.stateAtDispatch)
	assert.Contains(t, replies[0], "0xdeposit")
}

func TestChainSelectionRecordsAttemptAndDispatchesPoll(t *testing.T) {
	tb := newTestBooking(t)
	seedPaymentSelection(tb)
	tb.chain.balances = []*big.Int{big.NewInt(75_000_000)}

	replies, err := tb.svc.ProcessMessage(context.Background(), testUser, "circle layer")
	require.NoError(t, err)

	saved := tb.store.get(testUser)
	assert.Equal(t, models.StateAwaitingChainPayment, saved.State)
	assert.NotEmpty(t, saved.FlightDetails.DepositAddress)

	attempt, err := tb.tracker.LoadAttempt(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, attempt)
	assert.Equal(t, uint64(1), attempt.AddressIndex)
	assert.Zero(t, attempt.InitialBalance.Cmp(big.NewInt(75_000_000)))
	assert.Zero(t, attempt.ExpectedAmount.Cmp(big.NewInt(120_500_000)))

	assert.Equal(t, 1, tb.dispatcher.chainPolls)
	assert.Equal(t, models.StateAwaitingChainPayment, tb.dispatcher.stateAtDispatch)
	assert.Contains(t, replies[0], saved.FlightDetails.DepositAddress)
}

func TestUnknownPaymentChoiceReprompts(t *testing.T) {
	tb := newTestBooking(t)
	seedPaymentSelection(tb)

	replies, err := tb.svc.ProcessMessage(context.Background(), testUser, "cash on delivery")
	require.NoError(t, err)

	assert.Equal(t, models.StateAwaitingPaymentSelect, tb.store.get(testUser).State)
	assert.Contains(t, replies[0], "card")
	assert.Contains(t, replies[0], "usdc")
}

func TestCheckoutFailureResets(t *testing.T) {
	tb := newTestBooking(t)
	seedPaymentSelection(tb)
	tb.svc.Checkout = &fakeCheckout{err: assert.AnError}

	replies, err := tb.svc.ProcessMessage(context.Background(), testUser, "card")
	require.NoError(t, err)

	assert.Equal(t, models.StateGatheringInfo, tb.store.get(testUser).State)
	assert.Contains(t, replies[0], "Sorry")
}

func TestUSDCUnits(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"120.50", 120_500_000},
		{"100", 100_000_000},
		{"0.5", 500_000},
		{"0.1234567", 123_456}, // sub-unit precision truncates
	}
	for _, tc := range cases {
		got, err := usdcUnits(tc.amount)
		require.NoError(t, err, tc.amount)
		assert.Zero(t, got.Cmp(big.NewInt(tc.want)), "amount %s", tc.amount)
	}

	_, err := usdcUnits("not-a-number")
	assert.Error(t, err)
}
