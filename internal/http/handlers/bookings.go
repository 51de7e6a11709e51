package handlers

import (
	"net/http"
	"strings"

	"campusride/internal/domain/models"

	"github.com/gin-gonic/gin"
)

type bookingRequest struct {
	RideID  int64  `json:"rideId" binding:"required,gt=0"`
	Message string `json:"message" binding:"max=500"`
}

type bookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// POST /api/bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var req bookingRequest
	if !bindJSON(c, &req) {
		return
	}
	booking, err := h.Bookings.Create(c.Request.Context(), currentUser(c), req.RideID, req.Message)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// GET /api/bookings lists the caller's bookings as a passenger.
func (h *Handler) ListMyBookings(c *gin.Context) {
	bookings, err := h.Bookings.ListMine(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GET /api/bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	booking, err := h.Bookings.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// PUT /api/bookings/:id/status
func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req bookingStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status := models.BookingStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	booking, err := h.Bookings.UpdateStatus(c.Request.Context(), currentUser(c), id, status)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// DELETE /api/bookings/:id
func (h *Handler) DeleteBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Bookings.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking deleted"})
}
