package booking

import (
	"context"
	"math/big"
	"testing"
	"time"

	"flai/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFlightSearchSuccess(t *testing.T) {
	tb := newTestBooking(t)
	sess := models.NewSession()
	sess.State = models.StateSearchInProgress
	sess.FlightDetails = sampleDetails()
	tb.store.put(testUser, sess)

	tb.flights.locations = map[string]string{"London": "LON", "Paris": "PAR"}
	tb.flights.airlines = map[string]string{"AF": "Air France"}
	offer := sampleOffer("1")
	offer.AirlineName = ""
	tb.flights.offers = []models.FlightOffer{offer}

	require.NoError(t, tb.svc.RunFlightSearch(context.Background(), testUser, sess.FlightDetails))

	saved := tb.store.get(testUser)
	assert.Equal(t, models.StateFlightSelection, saved.State)
	require.Len(t, saved.FlightOffers, 1)
	assert.Equal(t, "Air France", saved.FlightOffers[0].AirlineName)

	require.Len(t, tb.messenger.texts, 1)
	assert.Contains(t, tb.messenger.texts[0], "I found")
	assert.Contains(t, tb.messenger.texts[0], "1.")
}

func TestRunFlightSearchNoOffersResets(t *testing.T) {
	tb := newTestBooking(t)
	sess := models.NewSession()
	sess.State = models.StateSearchInProgress
	sess.FlightDetails = sampleDetails()
	tb.store.put(testUser, sess)

	tb.flights.locations = map[string]string{"London": "LON", "Paris": "PAR"}
	tb.flights.offers = nil

	require.NoError(t, tb.svc.RunFlightSearch(context.Background(), testUser, sess.FlightDetails))

	saved := tb.store.get(testUser)
	assert.Equal(t, models.StateGatheringInfo, saved.State)
	assert.Empty(t, saved.FlightOffers)
	require.Len(t, tb.messenger.texts, 1)
	assert.Contains(t, tb.messenger.texts[0], "couldn't find")
}

func TestRunFlightSearchUnresolvedOriginResets(t *testing.T) {
	tb := newTestBooking(t)
	sess := models.NewSession()
	sess.State = models.StateSearchInProgress
	details := sampleDetails()
	details.Origin = "Atlantis"
	sess.FlightDetails = details
	tb.store.put(testUser, sess)

	require.NoError(t, tb.svc.RunFlightSearch(context.Background(), testUser, details))

	assert.Equal(t, models.StateGatheringInfo, tb.store.get(testUser).State)
	require.Len(t, tb.messenger.texts, 1)
}

func TestRunFlightSearchAcceptsIATACodes(t *testing.T) {
	tb := newTestBooking(t)
	sess := models.NewSession()
	sess.State = models.StateSearchInProgress
	details := sampleDetails()
	details.Origin = "lhr"
	details.Destination = "CDG"
	sess.FlightDetails = details
	tb.store.put(testUser, sess)
	tb.flights.offers = []models.FlightOffer{sampleOffer("1")}

	require.NoError(t, tb.svc.RunFlightSearch(context.Background(), testUser, details))
	assert.Equal(t, models.StateFlightSelection, tb.store.get(testUser).State)
}

func TestUSDCPollReconcilesOnceAfterComplete(t *testing.T) {
	tb := newTestBooking(t)
	seedPaidSession(tb, "John Doe")
	tb.circle.statuses = []string{"pending", "pending", "complete"}

	require.NoError(t, tb.svc.RunUSDCPoll(context.Background(), testUser, "intent-1"))

	assert.Equal(t, 3, tb.circle.statusCalls)
	assert.Equal(t, models.StateBookingConfirmed, tb.store.get(testUser).State)
	require.Len(t, tb.repo.records, 1)
	assert.Equal(t, railUSDC, tb.repo.records[0].PaymentRail)
	assert.Len(t, tb.messenger.texts, 1)
}

func TestUSDCPollTimesOutSilently(t *testing.T) {
	tb := newTestBooking(t)
	seedPaidSession(tb, "John Doe")
	tb.circle.statuses = []string{"pending"}
	tb.svc.PollTimeout = 10 * time.Millisecond

	require.NoError(t, tb.svc.RunUSDCPoll(context.Background(), testUser, "intent-1"))

	assert.Equal(t, models.StateAwaitingPayment, tb.store.get(testUser).State)
	assert.Empty(t, tb.messenger.texts)
	assert.Empty(t, tb.repo.records)
}

func TestChainPollBaselineAloneNeverReconciles(t *testing.T) {
	tb := newTestBooking(t)
	seedPaidSession(tb, "John Doe")
	attempt := models.SettlementAttempt{
		Address:        "0xabc",
		InitialBalance: big.NewInt(500_000_000),
		ExpectedAmount: big.NewInt(120_500_000),
		AddressIndex:   1,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, tb.tracker.SaveAttempt(context.Background(), testUser, attempt))
	// A stale balance from an earlier attempt sits on the address; it must
	// not satisfy this payment request.
	tb.chain.balances = []*big.Int{big.NewInt(500_000_000)}
	tb.svc.PollTimeout = 10 * time.Millisecond

	require.NoError(t, tb.svc.RunChainPoll(context.Background(), testUser))

	assert.Equal(t, models.StateAwaitingPayment, tb.store.get(testUser).State)
	assert.Empty(t, tb.repo.records)
	loaded, err := tb.tracker.LoadAttempt(context.Background(), testUser)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestChainPollReconcilesAtTarget(t *testing.T) {
	tb := newTestBooking(t)
	seedPaidSession(tb, "John Doe")
	attempt := models.SettlementAttempt{
		Address:        "0xabc",
		InitialBalance: big.NewInt(500_000_000),
		ExpectedAmount: big.NewInt(120_500_000),
		AddressIndex:   1,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, tb.tracker.SaveAttempt(context.Background(), testUser, attempt))
	tb.chain.balances = []*big.Int{big.NewInt(500_000_000), big.NewInt(620_500_000)}

	require.NoError(t, tb.svc.RunChainPoll(context.Background(), testUser))

	assert.Equal(t, models.StateBookingConfirmed, tb.store.get(testUser).State)
	require.Len(t, tb.repo.records, 1)
	assert.Equal(t, railChain, tb.repo.records[0].PaymentRail)

	// The attempt is consumed so a later poll cannot settle twice.
	loaded, err := tb.tracker.LoadAttempt(context.Background(), testUser)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.Equal(t, 1, tb.tracker.deletes)
}

func TestChainPollKeepsAttemptThroughStoreBlip(t *testing.T) {
	tb := newTestBooking(t)
	seedPaidSession(tb, "John Doe")
	attempt := models.SettlementAttempt{
		Address:        "0xabc",
		InitialBalance: big.NewInt(500_000_000),
		ExpectedAmount: big.NewInt(120_500_000),
		AddressIndex:   1,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, tb.tracker.SaveAttempt(context.Background(), testUser, attempt))
	tb.chain.balances = []*big.Int{big.NewInt(620_500_000)}
	tb.svc.PollTimeout = 10 * time.Millisecond

	// Session store down for the whole window, right as the balance hits
	// target: the poll must leave the attempt for a later run to settle.
	tb.store.failLoad = true
	require.NoError(t, tb.svc.RunChainPoll(context.Background(), testUser))

	assert.Empty(t, tb.repo.records)
	assert.Zero(t, tb.tracker.deletes)
	loaded, err := tb.tracker.LoadAttempt(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	// Store recovered: the surviving attempt settles on the next run.
	tb.store.failLoad = false
	require.NoError(t, tb.svc.RunChainPoll(context.Background(), testUser))

	assert.Equal(t, models.StateBookingConfirmed, tb.store.get(testUser).State)
	require.Len(t, tb.repo.records, 1)
	assert.Equal(t, railChain, tb.repo.records[0].PaymentRail)
	assert.Equal(t, 1, tb.tracker.deletes)
}

func TestChainPollWithoutAttemptExits(t *testing.T) {
	tb := newTestBooking(t)
	seedPaidSession(tb, "John Doe")

	require.NoError(t, tb.svc.RunChainPoll(context.Background(), testUser))

	assert.Empty(t, tb.repo.records)
	assert.Equal(t, models.StateAwaitingPayment, tb.store.get(testUser).State)
}
