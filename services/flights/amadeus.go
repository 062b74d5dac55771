package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"flai/config"
	"flai/models"

	"go.uber.org/zap"
)

const (
	testHost       = "https://test.api.amadeus.com"
	productionHost = "https://api.amadeus.com"

	maxOffers = 5
)

// AmadeusService talks to the Amadeus self-service REST API using a cached
// client-credentials token.
type AmadeusService struct {
	host         string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewAmadeusService(logger *zap.Logger) *AmadeusService {
	host := testHost
	if config.IsProduction() {
		host = productionHost
	}
	return &AmadeusService{
		host:         host,
		clientID:     config.AppConfig.AmadeusClientID,
		clientSecret: config.AppConfig.AmadeusClientSecret,
		httpClient:   &http.Client{Timeout: 20 * time.Second},
		logger:       logger,
	}
}

func (s *AmadeusService) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.host+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("amadeus token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("amadeus token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("amadeus token request: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("amadeus token response: %w", err)
	}

	s.accessToken = payload.AccessToken
	// Refresh one minute before the server-side expiry.
	s.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn-60) * time.Second)
	return s.accessToken, nil
}

func (s *AmadeusService) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	tok, err := s.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.host+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("amadeus request %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("amadeus request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("amadeus request %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("amadeus response %s: %w", path, err)
	}
	return nil
}

// LocationCode returns the first airport or city IATA code matching the keyword.
func (s *AmadeusService) LocationCode(ctx context.Context, city string) (string, error) {
	query := url.Values{
		"keyword": {city},
		"subType": {"CITY,AIRPORT"},
	}
	var payload struct {
		Data []struct {
			IATACode string `json:"iataCode"`
		} `json:"data"`
	}
	if err := s.get(ctx, "/v1/reference-data/locations", query, &payload); err != nil {
		return "", err
	}
	for _, loc := range payload.Data {
		if loc.IATACode != "" {
			return loc.IATACode, nil
		}
	}
	return "", nil
}

// Search runs a flight-offers search priced in USD, capped at maxOffers.
func (s *AmadeusService) Search(ctx context.Context, params SearchParams) ([]models.FlightOffer, error) {
	adults := params.Adults
	if adults < 1 {
		adults = 1
	}
	query := url.Values{
		"originLocationCode":      {params.OriginCode},
		"destinationLocationCode": {params.DestinationCode},
		"departureDate":           {params.DepartureDate},
		"adults":                  {strconv.Itoa(adults)},
		"currencyCode":            {"USD"},
		"max":                     {strconv.Itoa(maxOffers)},
	}
	if params.ReturnDate != "" {
		query.Set("returnDate", params.ReturnDate)
	}
	if params.TravelClass != "" {
		query.Set("travelClass", params.TravelClass)
	}

	var payload struct {
		Data []models.FlightOffer `json:"data"`
	}
	if err := s.get(ctx, "/v2/shopping/flight-offers", query, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// AirlineName resolves a carrier code to its display name.
func (s *AmadeusService) AirlineName(ctx context.Context, carrierCode string) (string, error) {
	query := url.Values{"airlineCodes": {carrierCode}}
	var payload struct {
		Data []struct {
			BusinessName string `json:"businessName"`
			CommonName   string `json:"commonName"`
		} `json:"data"`
	}
	if err := s.get(ctx, "/v1/reference-data/airlines", query, &payload); err != nil {
		return "", err
	}
	if len(payload.Data) == 0 {
		return carrierCode, nil
	}
	if name := payload.Data[0].CommonName; name != "" {
		return name, nil
	}
	if name := payload.Data[0].BusinessName; name != "" {
		return name, nil
	}
	return carrierCode, nil
}
