package handlers

import (
	"net/http"
	"strings"

	"campusride/internal/domain/models"
	"campusride/internal/services"

	"github.com/gin-gonic/gin"
)

type contactRequest struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Relationship string `json:"relationship"`
	IsPrimary    bool   `json:"isPrimary"`
}

type alertRequest struct {
	RideID      int64    `json:"rideId" binding:"required,gt=0"`
	Type        string   `json:"type" binding:"required"`
	Description string   `json:"description" binding:"max=2000"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (r contactRequest) input() services.ContactInput {
	return services.ContactInput{
		Name:         r.Name,
		Phone:        r.Phone,
		Relationship: r.Relationship,
		IsPrimary:    r.IsPrimary,
	}
}

// GET /api/emergency-contacts
func (h *Handler) ListContacts(c *gin.Context) {
	contacts, err := h.Emergency.ListContacts(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// POST /api/emergency-contacts
func (h *Handler) CreateContact(c *gin.Context) {
	var req contactRequest
	if !bindJSON(c, &req) {
		return
	}
	contact, err := h.Emergency.AddContact(c.Request.Context(), currentUser(c).ID, req.input())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contact": contact})
}

// PUT /api/emergency-contacts/:id
func (h *Handler) UpdateContact(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req contactRequest
	if !bindJSON(c, &req) {
		return
	}
	contact, err := h.Emergency.UpdateContact(c.Request.Context(), currentUser(c).ID, id, req.input())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

// DELETE /api/emergency-contacts/:id
func (h *Handler) DeleteContact(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Emergency.DeleteContact(c.Request.Context(), currentUser(c).ID, id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "contact deleted"})
}

// POST /api/emergency-alerts
func (h *Handler) RaiseAlert(c *gin.Context) {
	var req alertRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Emergency.Raise(c.Request.Context(), currentUser(c), services.AlertInput{
		RideID:      req.RideID,
		Type:        models.EmergencyType(strings.ToLower(strings.TrimSpace(req.Type))),
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /api/emergency-alerts
func (h *Handler) ListAlerts(c *gin.Context) {
	alerts, err := h.Emergency.ListAlerts(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// PUT /api/emergency-alerts/:id/resolve
func (h *Handler) ResolveAlert(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	alert, err := h.Emergency.Resolve(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": alert})
}
