package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flai/config"
	"flai/services/storage"

	"go.uber.org/zap"
)

// Messenger delivers outbound messages to whichever chat platform the user
// arrived on. User IDs are channel prefixed: "telegram:<chatID>" or
// "whatsapp:<E.164 number>".
type Messenger interface {
	SendText(ctx context.Context, userID, text string) error
	SendDocument(ctx context.Context, userID, filename string, pdfBytes []byte) error
}

// DefaultMessenger routes on the user ID prefix. WhatsApp documents go
// through the storage service because Twilio fetches media by URL.
type DefaultMessenger struct {
	httpClient *http.Client
	storage    storage.StorageService
	logger     *zap.Logger
}

func NewDefaultMessenger(storageSvc storage.StorageService, logger *zap.Logger) *DefaultMessenger {
	return &DefaultMessenger{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		storage:    storageSvc,
		logger:     logger,
	}
}

func telegramAPIURL(method string) string {
	return fmt.Sprintf("https://api.telegram.org/bot%s/%s", config.AppConfig.TelegramBotToken, method)
}

func (m *DefaultMessenger) SendText(ctx context.Context, userID, text string) error {
	switch {
	case strings.HasPrefix(userID, "telegram:"):
		return m.sendTelegramMessage(ctx, strings.TrimPrefix(userID, "telegram:"), text)
	case strings.HasPrefix(userID, "whatsapp:"):
		return m.sendTwilioMessage(ctx, userID, text, "")
	default:
		return fmt.Errorf("send text: unknown channel for user %q", userID)
	}
}

func (m *DefaultMessenger) SendDocument(ctx context.Context, userID, filename string, pdfBytes []byte) error {
	switch {
	case strings.HasPrefix(userID, "telegram:"):
		return m.sendTelegramDocument(ctx, strings.TrimPrefix(userID, "telegram:"), filename, pdfBytes)
	case strings.HasPrefix(userID, "whatsapp:"):
		mediaURL, err := m.storage.UploadItinerary(ctx, pdfBytes, filename)
		if err != nil {
			return fmt.Errorf("send document: %w", err)
		}
		return m.sendTwilioMessage(ctx, userID, "Here is your itinerary.", mediaURL)
	default:
		return fmt.Errorf("send document: unknown channel for user %q", userID)
	}
}

func (m *DefaultMessenger) sendTelegramMessage(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("telegram sendMessage payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, telegramAPIURL("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return m.doChecked(req, "telegram sendMessage")
}

func (m *DefaultMessenger) sendTelegramDocument(ctx context.Context, chatID, filename string, pdfBytes []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", chatID); err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	if _, err := part.Write(pdfBytes); err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, telegramAPIURL("sendDocument"), &body)
	if err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return m.doChecked(req, "telegram sendDocument")
}

func (m *DefaultMessenger) sendTwilioMessage(ctx context.Context, to, body, mediaURL string) error {
	cfg := config.AppConfig
	form := url.Values{
		"From": {cfg.TwilioWhatsAppNumber},
		"To":   {to},
		"Body": {body},
	}
	if mediaURL != "" {
		form.Set("MediaUrl", mediaURL)
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", cfg.TwilioAccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio message: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	return m.doChecked(req, "twilio message")
}

func (m *DefaultMessenger) doChecked(req *http.Request, label string) error {
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		m.logger.Warn("outbound delivery rejected",
			zap.String("call", label), zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return fmt.Errorf("%s: status %d", label, resp.StatusCode)
	}
	return nil
}
