package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"flai/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type scriptedSearch struct {
	results []searchResult
	calls   int
}

type searchResult struct {
	offers []models.FlightOffer
	err    error
}

func (s *scriptedSearch) Search(ctx context.Context, params SearchParams) ([]models.FlightOffer, error) {
	result := s.results[len(s.results)-1]
	if s.calls < len(s.results) {
		result = s.results[s.calls]
	}
	s.calls++
	return result.offers, result.err
}

func (s *scriptedSearch) LocationCode(ctx context.Context, city string) (string, error) {
	return "", nil
}

func (s *scriptedSearch) AirlineName(ctx context.Context, carrierCode string) (string, error) {
	return "", nil
}

func newTestGateway(svc Service) *Gateway {
	return &Gateway{
		Service:  svc,
		Logger:   zap.NewNop(),
		Budget:   50 * time.Millisecond,
		Interval: 10 * time.Millisecond,
	}
}

func TestSearchWithRetryFirstTrySucceeds(t *testing.T) {
	offers := []models.FlightOffer{{ID: "1"}}
	svc := &scriptedSearch{results: []searchResult{{offers: offers}}}

	got := newTestGateway(svc).SearchWithRetry(context.Background(), SearchParams{})
	assert.Equal(t, offers, got)
	assert.Equal(t, 1, svc.calls)
}

func TestSearchWithRetryRecoversAfterFailure(t *testing.T) {
	offers := []models.FlightOffer{{ID: "1"}}
	svc := &scriptedSearch{results: []searchResult{
		{err: errors.New("upstream 500")},
		{offers: offers},
	}}

	got := newTestGateway(svc).SearchWithRetry(context.Background(), SearchParams{})
	assert.Equal(t, offers, got)
	assert.Equal(t, 2, svc.calls)
}

func TestSearchWithRetryBudgetExhausted(t *testing.T) {
	svc := &scriptedSearch{results: []searchResult{{err: errors.New("upstream 500")}}}

	got := newTestGateway(svc).SearchWithRetry(context.Background(), SearchParams{})
	assert.Empty(t, got)
	assert.Greater(t, svc.calls, 1)
}

func TestSearchWithRetryHonorsCancel(t *testing.T) {
	svc := &scriptedSearch{results: []searchResult{{err: errors.New("upstream 500")}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := newTestGateway(svc).SearchWithRetry(ctx, SearchParams{})
	assert.Empty(t, got)
}
