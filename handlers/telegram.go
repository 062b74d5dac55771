package handlers

import (
	"fmt"
	"net/http"

	"flai/config"
	"flai/services/booking"
	"flai/services/messaging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler serves the inbound chat-platform webhooks.
type WebhookHandler struct {
	Booking   booking.BookingService
	Messenger messaging.Messenger
	Logger    *zap.Logger
}

func NewWebhookHandler(bookingSvc booking.BookingService, messenger messaging.Messenger, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Booking: bookingSvc, Messenger: messenger, Logger: logger}
}

type telegramUpdate struct {
	Message struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// TelegramWebhookHandler receives Telegram updates. Replies go out through
// the Bot API rather than the webhook response; the response only
// acknowledges receipt so Telegram stops retrying.
func (h *WebhookHandler) TelegramWebhookHandler(c *gin.Context) {
	if secret := config.AppConfig.TelegramWebhookSecret; secret != "" {
		if c.GetHeader("X-Telegram-Bot-Api-Secret-Token") != secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
	}

	var update telegramUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update", "details": err.Error()})
		return
	}
	if update.Message.Text == "" || update.Message.Chat.ID == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	userID := fmt.Sprintf("telegram:%d", update.Message.Chat.ID)
	replies, err := h.Booking.ProcessMessage(c.Request.Context(), userID, update.Message.Text)
	if err != nil {
		h.Logger.Error("telegram message processing failed", zap.String("user", userID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	for _, reply := range replies {
		if err := h.Messenger.SendText(c.Request.Context(), userID, reply); err != nil {
			h.Logger.Error("telegram reply delivery failed", zap.String("user", userID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
