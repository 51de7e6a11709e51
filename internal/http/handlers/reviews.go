package handlers

import (
	"net/http"

	"campusride/internal/services"

	"github.com/gin-gonic/gin"
)

type reviewRequest struct {
	RideID     int64  `json:"rideId" binding:"required,gt=0"`
	RevieweeID int64  `json:"revieweeId" binding:"required,gt=0"`
	Rating     int    `json:"rating" binding:"required"`
	Comment    string `json:"comment" binding:"max=1000"`
}

// POST /api/reviews
func (h *Handler) CreateReview(c *gin.Context) {
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.Reviews.Create(c.Request.Context(), currentUser(c), services.ReviewInput{
		RideID:     req.RideID,
		RevieweeID: req.RevieweeID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

// GET /api/reviews/user/:userId
func (h *Handler) ListUserReviews(c *gin.Context) {
	userID, ok := paramID(c, "userId")
	if !ok {
		return
	}
	reviews, err := h.Reviews.ListForUser(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}
