package booking

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"flai/models"
	"flai/services/chain"
	"flai/services/circle"
	"flai/services/flights"
	ai "flai/services/intelligence"

	"go.uber.org/zap"
)

// memoryStore is an in-memory session.Store with the same contract as the
// Redis one: a miss or a failure yields a fresh default session.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	failLoad bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]models.Session{}}
}

func (m *memoryStore) Load(ctx context.Context, userID string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad {
		return models.NewSession(), fmt.Errorf("store down")
	}
	if sess, ok := m.sessions[userID]; ok {
		return sess, nil
	}
	return models.NewSession(), nil
}

func (m *memoryStore) Save(ctx context.Context, userID string, sess models.Session) error {
	if !sess.State.Valid() {
		return fmt.Errorf("invalid state %q", sess.State)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = sess
	return nil
}

func (m *memoryStore) SetState(ctx context.Context, userID string, state models.State) error {
	if !state.Valid() {
		return fmt.Errorf("invalid state %q", state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		sess = models.NewSession()
	}
	sess.State = state
	m.sessions[userID] = sess
	return nil
}

func (m *memoryStore) get(userID string) models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

func (m *memoryStore) put(userID string, sess models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = sess
}

// fakeAI scripts the extraction collaborator.
type fakeAI struct {
	reply      string
	replyErr   error
	details    models.FlightDetails
	detailsErr error
	names      []string
	namesErr   error
}

func (f *fakeAI) GetAIResponse(ctx context.Context, message string, history []models.DialogTurn, mode ai.Mode) (string, []models.DialogTurn, error) {
	if f.replyErr != nil {
		return "", history, f.replyErr
	}
	updated := append(append([]models.DialogTurn{}, history...),
		models.DialogTurn{Role: "user", Content: message},
		models.DialogTurn{Role: "model", Content: f.reply})
	return f.reply, updated, nil
}

func (f *fakeAI) ExtractFlightDetails(ctx context.Context, history []models.DialogTurn) (models.FlightDetails, error) {
	return f.details, f.detailsErr
}

func (f *fakeAI) ExtractTravelerNames(ctx context.Context, message string, count int) ([]string, error) {
	return f.names, f.namesErr
}

// fakeTracker is an in-memory settlement.Tracker.
type fakeTracker struct {
	mu       sync.Mutex
	next     uint64
	attempts map[string]models.SettlementAttempt
	deletes  int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{attempts: map[string]models.SettlementAttempt{}}
}

func (f *fakeTracker) NextAddressIndex(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return f.next, nil
}

func (f *fakeTracker) SaveAttempt(ctx context.Context, userID string, attempt models.SettlementAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[userID] = attempt
	return nil
}

func (f *fakeTracker) LoadAttempt(ctx context.Context, userID string) (*models.SettlementAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[userID]
	if !ok {
		return nil, nil
	}
	copied := attempt
	return &copied, nil
}

func (f *fakeTracker) DeleteAttempt(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.attempts, userID)
	f.deletes++
	return nil
}

// fakeChain scripts consecutive TokenBalance reads.
type fakeChain struct {
	mu           sync.Mutex
	balances     []*big.Int
	balanceCalls int
	events       []chain.TransferEvent
}

func (f *fakeChain) DeriveDepositAddress(index uint64) (string, error) {
	return fmt.Sprintf("0x%040x", index), nil
}

func (f *fakeChain) TokenBalance(ctx context.Context, address string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.balanceCalls
	if i >= len(f.balances) {
		i = len(f.balances) - 1
	}
	f.balanceCalls++
	return new(big.Int).Set(f.balances[i]), nil
}

func (f *fakeChain) TransferEvents(ctx context.Context, address string, fromBlock uint64) ([]chain.TransferEvent, error) {
	return f.events, nil
}

func (f *fakeChain) ConfirmedBlock(ctx context.Context) (uint64, error) {
	return 0, nil
}

// fakeCircle scripts consecutive status polls.
type fakeCircle struct {
	mu          sync.Mutex
	intent      *circle.PaymentIntent
	statuses    []string
	statusCalls int
}

func (f *fakeCircle) CreatePaymentIntent(ctx context.Context, amountUSD string) (*circle.PaymentIntent, error) {
	return f.intent, nil
}

func (f *fakeCircle) PaymentIntentStatus(ctx context.Context, intentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.statusCalls++
	return f.statuses[i], nil
}

// fakeDispatcher records dispatches and captures the store's state at
// dispatch time, to verify the save-before-dispatch ordering.
type fakeDispatcher struct {
	store           *memoryStore
	searches        int
	usdcPolls       int
	chainPolls      int
	stateAtDispatch models.State
}

func (f *fakeDispatcher) DispatchFlightSearch(ctx context.Context, userID string, details models.FlightDetails) error {
	f.searches++
	f.stateAtDispatch = f.store.get(userID).State
	return nil
}

func (f *fakeDispatcher) DispatchUSDCPoll(ctx context.Context, userID, intentID string) error {
	f.usdcPolls++
	f.stateAtDispatch = f.store.get(userID).State
	return nil
}

func (f *fakeDispatcher) DispatchChainPoll(ctx context.Context, userID string) error {
	f.chainPolls++
	f.stateAtDispatch = f.store.get(userID).State
	return nil
}

// fakeMessenger records outbound deliveries.
type fakeMessenger struct {
	mu        sync.Mutex
	texts     []string
	documents []string
}

func (f *fakeMessenger) SendText(ctx context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendDocument(ctx context.Context, userID, filename string, pdfBytes []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, filename)
	return nil
}

type fakePDF struct{}

func (fakePDF) RenderItinerary(offer models.FlightOffer, travelerName string) ([]byte, error) {
	return []byte("pdf:" + travelerName), nil
}

// fakeRepo records archived bookings.
type fakeRepo struct {
	mu      sync.Mutex
	records []models.Booking
}

func (f *fakeRepo) Insert(ctx context.Context, booking models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, booking)
	return nil
}

func (f *fakeRepo) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return nil, fmt.Errorf("not found")
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return nil, nil
}

type fakeCheckout struct {
	url string
	err error
}

func (f *fakeCheckout) CreateCheckoutSession(ctx context.Context, offer models.FlightOffer, userID string) (string, error) {
	return f.url, f.err
}

type identityConverter struct{}

func (identityConverter) ConvertToUSD(ctx context.Context, amount float64, sourceCurrency string) (float64, error) {
	return amount, nil
}

// scriptedFlights implements flights.Service for the search task tests.
type scriptedFlights struct {
	locations map[string]string
	offers    []models.FlightOffer
	searchErr error
	airlines  map[string]string
}

func (s *scriptedFlights) LocationCode(ctx context.Context, city string) (string, error) {
	return s.locations[city], nil
}

func (s *scriptedFlights) Search(ctx context.Context, params flights.SearchParams) ([]models.FlightOffer, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.offers, nil
}

func (s *scriptedFlights) AirlineName(ctx context.Context, carrierCode string) (string, error) {
	if name, ok := s.airlines[carrierCode]; ok {
		return name, nil
	}
	return carrierCode, nil
}

// testBooking bundles the service under test with its fakes.
type testBooking struct {
	svc        *DefaultBookingService
	store      *memoryStore
	tracker    *fakeTracker
	ai         *fakeAI
	chain      *fakeChain
	circle     *fakeCircle
	dispatcher *fakeDispatcher
	messenger  *fakeMessenger
	repo       *fakeRepo
	flights    *scriptedFlights
}

func newTestBooking(t *testing.T) *testBooking {
	t.Helper()

	store := newMemoryStore()
	tb := &testBooking{
		store:   store,
		tracker: newFakeTracker(),
		ai:      &fakeAI{},
		chain:   &fakeChain{balances: []*big.Int{big.NewInt(0)}},
		circle: &fakeCircle{
			intent:   &circle.PaymentIntent{ID: "intent-1", DepositAddress: "0xdeposit"},
			statuses: []string{"pending"},
		},
		dispatcher: &fakeDispatcher{store: store},
		messenger:  &fakeMessenger{},
		repo:       &fakeRepo{},
		flights:    &scriptedFlights{locations: map[string]string{}, airlines: map[string]string{}},
	}

	tb.svc = &DefaultBookingService{
		Sessions:    tb.store,
		Settlements: tb.tracker,
		AI:          tb.ai,
		Flights: &flights.Gateway{
			Service:  tb.flights,
			Logger:   zap.NewNop(),
			Budget:   20 * time.Millisecond,
			Interval: 5 * time.Millisecond,
		},
		Chain:     tb.chain,
		Circle:    tb.circle,
		Checkout:  &fakeCheckout{url: "https://checkout.example/session"},
		Currency:  identityConverter{},
		PDF:       fakePDF{},
		Messenger: tb.messenger,
		Tasks:     tb.dispatcher,
		Bookings:  tb.repo,
		Logger:    zap.NewNop(),

		USDCPollInterval:  time.Millisecond,
		ChainPollInterval: time.Millisecond,
		PollTimeout:       200 * time.Millisecond,
	}
	return tb
}

func sampleOffer(id string) models.FlightOffer {
	return models.FlightOffer{
		ID:          id,
		AirlineName: "Air France",
		Itineraries: []models.Itinerary{{
			Segments: []models.Segment{{
				Departure:   models.FlightPoint{IATACode: "LHR"},
				Arrival:     models.FlightPoint{IATACode: "CDG"},
				CarrierCode: "AF",
			}},
		}},
		Price: models.Price{Total: "120.50", Currency: "USD"},
	}
}

func sampleDetails() models.FlightDetails {
	return models.FlightDetails{
		Origin:            "London",
		Destination:       "Paris",
		DepartureDate:     "2026-12-25",
		NumberOfTravelers: 1,
		TravelClass:       "ECONOMY",
	}
}
