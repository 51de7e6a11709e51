package handlers

import (
	"context"
	"net/http"
	"strconv"

	"campusride/internal/domain/models"
	"campusride/internal/http/middleware"
	"campusride/internal/realtime"
	"campusride/internal/services"

	"github.com/gin-gonic/gin"
)

// Pinger reports storage health for /api/db-check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler carries the services the HTTP layer calls into.
type Handler struct {
	Auth      services.AuthService
	Users     services.UserService
	Rides     services.RideService
	Bookings  services.BookingService
	Messages  services.MessageService
	Reviews   services.ReviewService
	Emergency services.EmergencyService
	Docs      services.DocsService
	Hub       *realtime.Hub
	Store     Pinger

	CookieSecure   bool
	AllowedOrigins []string
}

// bindJSON ensures body is present and parsable.
func bindJSON[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "invalid_payload", "request body is required", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_id", name+" must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// currentUser is only called behind AuthRequired.
func currentUser(c *gin.Context) models.User {
	u, _ := middleware.CurrentUser(c)
	return u
}
