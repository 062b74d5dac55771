package handlers

import (
	"net/http"
	"strings"

	"flai/database/repository"
	"flai/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingLookupHandler exposes the archived-booking collection for support
// tooling: a single booking by reference, or a user's bookings newest first.
type BookingLookupHandler struct {
	Repo   repository.BookingRepository
	Logger *zap.Logger
}

func NewBookingLookupHandler(repo repository.BookingRepository, logger *zap.Logger) *BookingLookupHandler {
	return &BookingLookupHandler{Repo: repo, Logger: logger}
}

// GetByReference handles GET /ops/bookings/:reference.
func (h *BookingLookupHandler) GetByReference(c *gin.Context) {
	reference := strings.ToUpper(strings.TrimSpace(c.Param("reference")))
	if reference == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing booking reference", "")
		return
	}

	booking, err := h.Repo.GetByReference(c.Request.Context(), reference)
	if err != nil {
		h.Logger.Warn("booking lookup failed", zap.String("reference", reference), zap.Error(err))
		utils.JSONError(c, http.StatusNotFound, "Booking not found", reference)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ListForUser handles GET /ops/bookings?user=<channel-prefixed id>.
func (h *BookingLookupHandler) ListForUser(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user"))
	if userID == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing user query parameter", "")
		return
	}

	bookings, err := h.Repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.Logger.Error("booking list failed", zap.String("user", userID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Could not list bookings", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}
