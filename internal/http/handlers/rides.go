package handlers

import (
	"net/http"
	"strings"
	"time"

	"campusride/internal/domain/models"
	"campusride/internal/services"
	"campusride/internal/utils"

	"github.com/gin-gonic/gin"
)

type rideRequest struct {
	Origin        string    `json:"origin" binding:"required"`
	Destination   string    `json:"destination" binding:"required"`
	DepartureTime time.Time `json:"departureTime" binding:"required"`
	Price         float64   `json:"price" binding:"gte=0"`
	TotalSeats    int       `json:"totalSeats" binding:"required,min=1,max=8"`
	Description   string    `json:"description" binding:"max=1000"`
	IsRecurring   bool      `json:"isRecurring"`
	RecurringDays string    `json:"recurringDays"`
}

type rideUpdateRequest struct {
	Origin        *string    `json:"origin"`
	Destination   *string    `json:"destination"`
	DepartureTime *time.Time `json:"departureTime"`
	Price         *float64   `json:"price" binding:"omitempty,gte=0"`
	TotalSeats    *int       `json:"totalSeats" binding:"omitempty,min=1,max=8"`
	Description   *string    `json:"description" binding:"omitempty,max=1000"`
	IsRecurring   *bool      `json:"isRecurring"`
	RecurringDays *string    `json:"recurringDays"`
	Status        *string    `json:"status"`
}

// GET /api/rides?origin=&destination=&date=YYYY-MM-DD
func (h *Handler) ListRides(c *gin.Context) {
	filter := models.RideFilter{
		Origin:      strings.TrimSpace(c.Query("origin")),
		Destination: strings.TrimSpace(c.Query("destination")),
	}
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD",
				[]FieldError{{Field: "date", Rule: "datetime", Param: "2006-01-02"}})
			return
		}
		filter.Date = &d
	}

	rides, err := h.Rides.List(c.Request.Context(), filter)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": rides})
}

// GET /api/rides/:id
func (h *Handler) GetRide(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ride, err := h.Rides.Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride})
}

// GET /api/rides/driver/:driverId
func (h *Handler) ListDriverRides(c *gin.Context) {
	driverID, ok := paramID(c, "driverId")
	if !ok {
		return
	}
	rides, err := h.Rides.ListByDriver(c.Request.Context(), currentUser(c), driverID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": rides})
}

// POST /api/rides
func (h *Handler) CreateRide(c *gin.Context) {
	var req rideRequest
	if !bindJSON(c, &req) {
		return
	}
	ride, err := h.Rides.Create(c.Request.Context(), currentUser(c), services.RideInput{
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureTime: req.DepartureTime,
		Price:         req.Price,
		TotalSeats:    req.TotalSeats,
		Description:   req.Description,
		IsRecurring:   req.IsRecurring,
		RecurringDays: req.RecurringDays,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ride": ride})
}

// PUT /api/rides/:id
func (h *Handler) UpdateRide(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req rideUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	patch := models.RideUpdate{
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureTime: req.DepartureTime,
		Price:         req.Price,
		TotalSeats:    req.TotalSeats,
		Description:   req.Description,
		IsRecurring:   req.IsRecurring,
		RecurringDays: req.RecurringDays,
	}
	if req.Status != nil {
		st := models.RideStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		patch.Status = &st
	}

	ride, err := h.Rides.Update(c.Request.Context(), currentUser(c), id, patch)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride})
}

// DELETE /api/rides/:id soft-cancels the ride and its open bookings.
func (h *Handler) CancelRide(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ride, err := h.Rides.Cancel(c.Request.Context(), currentUser(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ride cancelled", "ride": ride})
}

// GET /api/rides/:id/bookings
func (h *Handler) ListRideBookings(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	bookings, err := h.Rides.ListBookings(c.Request.Context(), currentUser(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}
