package circle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"flai/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentIntent is the subset of a Circle payment intent the agent uses.
type PaymentIntent struct {
	ID             string
	Status         string
	DepositAddress string
}

// Service creates and polls Circle USDC payment intents.
type Service interface {
	CreatePaymentIntent(ctx context.Context, amountUSD string) (*PaymentIntent, error)
	PaymentIntentStatus(ctx context.Context, intentID string) (string, error)
}

// APIService talks to the Circle REST API. Every create carries a fresh
// idempotency key so a retried request cannot mint a second intent.
type APIService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewAPIService(logger *zap.Logger) *APIService {
	return &APIService{
		baseURL:    config.AppConfig.CircleBaseURL,
		apiKey:     config.AppConfig.CircleAPIKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type intentData struct {
	ID             string `json:"id"`
	Timeline       []struct {
		Status string `json:"status"`
	} `json:"timeline"`
	PaymentMethods []struct {
		Address string `json:"address"`
	} `json:"paymentMethods"`
}

func (s *APIService) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("circle request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("circle request %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("circle request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("circle request %s: status %d: %s", path, resp.StatusCode, raw)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("circle response %s: %w", path, err)
	}
	return nil
}

// CreatePaymentIntent opens a blockchain payment intent for the given USD amount.
func (s *APIService) CreatePaymentIntent(ctx context.Context, amountUSD string) (*PaymentIntent, error) {
	payload := map[string]interface{}{
		"idempotencyKey": uuid.New().String(),
		"amount": map[string]string{
			"amount":   amountUSD,
			"currency": "USD",
		},
		"settlementCurrency": "USD",
		"paymentMethods": []map[string]string{
			{"type": "blockchain", "chain": "ETH"},
		},
	}

	var response struct {
		Data intentData `json:"data"`
	}
	if err := s.do(ctx, http.MethodPost, "/paymentIntents", payload, &response); err != nil {
		return nil, err
	}
	if response.Data.ID == "" {
		return nil, fmt.Errorf("circle payment intent response missing id")
	}
	return intentFromData(response.Data), nil
}

// PaymentIntentStatus returns the latest timeline status for the intent.
func (s *APIService) PaymentIntentStatus(ctx context.Context, intentID string) (string, error) {
	var response struct {
		Data intentData `json:"data"`
	}
	if err := s.do(ctx, http.MethodGet, "/paymentIntents/"+intentID, nil, &response); err != nil {
		return "", err
	}
	return intentFromData(response.Data).Status, nil
}

func intentFromData(data intentData) *PaymentIntent {
	intent := &PaymentIntent{ID: data.ID}
	if len(data.Timeline) > 0 {
		// Timeline is newest first.
		intent.Status = data.Timeline[0].Status
	}
	if len(data.PaymentMethods) > 0 {
		intent.DepositAddress = data.PaymentMethods[0].Address
	}
	return intent
}
