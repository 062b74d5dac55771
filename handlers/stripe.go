package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"flai/config"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = 65536

// StripeWebhookHandler verifies and consumes Stripe events. A completed
// checkout session carries the user ID as its client reference and triggers
// settlement.
func (h *WebhookHandler) StripeWebhookHandler(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read payload"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
	if err != nil {
		h.Logger.Warn("stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	if event.Type != "checkout.session.completed" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var checkoutSession stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &checkoutSession); err != nil {
		h.Logger.Error("stripe event decode failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	userID := checkoutSession.ClientReferenceID
	if userID == "" {
		h.Logger.Warn("checkout session completed without client reference", zap.String("session", checkoutSession.ID))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := h.Booking.HandleSuccessfulPayment(c.Request.Context(), userID); err != nil {
		h.Logger.Error("card settlement failed", zap.String("user", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
