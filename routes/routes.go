package routes

import (
	"flai/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterWebhookRoutes registers the inbound chat and payment webhooks.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/webhooks")
	{
		api.POST("/telegram", hb.TelegramWebhookHandler)
		api.POST("/twilio", hb.TwilioWebhookHandler)
		api.POST("/stripe", hb.StripeWebhookHandler)
	}
}

// RegisterOpsRoutes registers operational endpoints.
func RegisterOpsRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)

	ops := r.Group("/ops")
	{
		ops.GET("/bookings", hb.BookingListHandler)
		ops.GET("/bookings/:reference", hb.BookingLookupHandler)
	}
}
