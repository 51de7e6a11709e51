package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetBookingTicket returns the booking e-ticket (inline).
func (h *Handler) GetBookingTicket(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	pdfBytes, filename, err := h.Docs.GenerateETicket(c.Request.Context(), currentUser(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
