package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const frankfurterBaseURL = "https://api.frankfurter.app"

// Converter converts offer prices into USD for the stablecoin rails.
type Converter interface {
	ConvertToUSD(ctx context.Context, amount float64, sourceCurrency string) (float64, error)
}

// FrankfurterService implements Converter against the Frankfurter API.
type FrankfurterService struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewFrankfurterService(logger *zap.Logger) *FrankfurterService {
	return &FrankfurterService{
		baseURL:    frankfurterBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (s *FrankfurterService) ConvertToUSD(ctx context.Context, amount float64, sourceCurrency string) (float64, error) {
	source := strings.ToUpper(strings.TrimSpace(sourceCurrency))
	if source == "USD" || source == "" {
		return amount, nil
	}

	endpoint := fmt.Sprintf("%s/latest?%s", s.baseURL, url.Values{
		"amount": {fmt.Sprintf("%.2f", amount)},
		"from":   {source},
		"to":     {"USD"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("currency conversion request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("currency conversion request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("currency conversion: status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("currency conversion response: %w", err)
	}
	usd, ok := payload.Rates["USD"]
	if !ok {
		return 0, fmt.Errorf("currency conversion: USD rate missing for %s", source)
	}
	return usd, nil
}
