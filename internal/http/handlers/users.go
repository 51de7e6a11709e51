package handlers

import (
	"net/http"

	"campusride/internal/domain/models"

	"github.com/gin-gonic/gin"
)

type profileRequest struct {
	Name       *string `json:"name"`
	Phone      *string `json:"phone"`
	University *string `json:"university"`
	StudentID  *string `json:"studentId"`
	Bio        *string `json:"bio" binding:"omitempty,max=1000"`
	IsDriver   *bool   `json:"isDriver"`
}

// GET /api/users/:id returns the public profile.
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := h.Users.Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.ToPublic()})
}

// PUT /api/users/me
func (h *Handler) UpdateMe(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Users.UpdateProfile(c.Request.Context(), currentUser(c).ID, models.UserUpdate{
		Name:       req.Name,
		Phone:      req.Phone,
		University: req.University,
		StudentID:  req.StudentID,
		Bio:        req.Bio,
		IsDriver:   req.IsDriver,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
