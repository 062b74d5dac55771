package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TwilioWebhookHandler receives WhatsApp messages via Twilio. The From field
// already carries the "whatsapp:" channel prefix the rest of the system keys
// on. Replies go out through the Twilio API; the webhook response is an
// empty TwiML document.
func (h *WebhookHandler) TwilioWebhookHandler(c *gin.Context) {
	body := strings.TrimSpace(c.PostForm("Body"))
	from := strings.TrimSpace(c.PostForm("From"))
	if body == "" || !strings.HasPrefix(from, "whatsapp:") {
		c.Data(http.StatusOK, "text/xml", []byte("<Response></Response>"))
		return
	}

	replies, err := h.Booking.ProcessMessage(c.Request.Context(), from, body)
	if err != nil {
		h.Logger.Error("whatsapp message processing failed", zap.String("user", from), zap.Error(err))
		c.Data(http.StatusOK, "text/xml", []byte("<Response></Response>"))
		return
	}

	for _, reply := range replies {
		if err := h.Messenger.SendText(c.Request.Context(), from, reply); err != nil {
			h.Logger.Error("whatsapp reply delivery failed", zap.String("user", from), zap.Error(err))
		}
	}
	c.Data(http.StatusOK, "text/xml", []byte("<Response></Response>"))
}
