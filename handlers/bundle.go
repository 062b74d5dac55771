package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Inbound chat webhooks.
	TelegramWebhookHandler gin.HandlerFunc
	TwilioWebhookHandler   gin.HandlerFunc

	// Payment webhooks.
	StripeWebhookHandler gin.HandlerFunc

	// Ops.
	HealthHandler        gin.HandlerFunc
	BookingListHandler   gin.HandlerFunc
	BookingLookupHandler gin.HandlerFunc
}
