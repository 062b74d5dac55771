package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"flai/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBookingRepo struct {
	byReference map[string]models.Booking
	byUser      map[string][]models.Booking
}

func (s *stubBookingRepo) Insert(ctx context.Context, booking models.Booking) error {
	return nil
}

func (s *stubBookingRepo) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	if b, ok := s.byReference[reference]; ok {
		return &b, nil
	}
	return nil, fmt.Errorf("booking %s: not found", reference)
}

func (s *stubBookingRepo) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.byUser[userID], nil
}

func newLookupRouter(repo *stubBookingRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewBookingLookupHandler(repo, zap.NewNop())
	r := gin.New()
	r.GET("/ops/bookings", h.ListForUser)
	r.GET("/ops/bookings/:reference", h.GetByReference)
	return r
}

func TestBookingLookupByReference(t *testing.T) {
	repo := &stubBookingRepo{byReference: map[string]models.Booking{
		"AB12CD34": {Reference: "AB12CD34", UserID: "telegram:42", PaymentRail: "card"},
	}}
	router := newLookupRouter(repo)

	w := httptest.NewRecorder()
	// Lowercase in the path resolves to the stored uppercase reference.
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ops/bookings/ab12cd34", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got models.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "AB12CD34", got.Reference)
	assert.Equal(t, "telegram:42", got.UserID)
}

func TestBookingLookupUnknownReference(t *testing.T) {
	router := newLookupRouter(&stubBookingRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ops/bookings/ZZ99ZZ99", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingListForUser(t *testing.T) {
	repo := &stubBookingRepo{byUser: map[string][]models.Booking{
		"whatsapp:+15551234567": {
			{Reference: "AA11AA11"},
			{Reference: "BB22BB22"},
		},
	}}
	router := newLookupRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ops/bookings?user=whatsapp:%2B15551234567", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		Bookings []models.Booking `json:"bookings"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, 2, payload.Count)
	require.Len(t, payload.Bookings, 2)
	assert.Equal(t, "AA11AA11", payload.Bookings[0].Reference)
}

func TestBookingListRequiresUser(t *testing.T) {
	router := newLookupRouter(&stubBookingRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ops/bookings", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
