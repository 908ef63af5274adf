package handlers

import (
	"net/http"

	"github.com/aish-attendance/attendance-api/internal/models"
	"github.com/aish-attendance/attendance-api/internal/services"
	"github.com/gin-gonic/gin"
)

// EmailHandler handles the class add request endpoint.
type EmailHandler struct {
	email *services.EmailService
}

// NewEmailHandler creates a new EmailHandler.
func NewEmailHandler(email *services.EmailService) *EmailHandler {
	return &EmailHandler{email: email}
}

// RequestClassAdd handles POST /api/v1/classes/request-add.
func (h *EmailHandler) RequestClassAdd(c *gin.Context) {
	var payload models.ClassAddRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := h.email.RequestClassAdd(c.Request.Context(), payload); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
