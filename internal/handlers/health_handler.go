package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles the healthcheck endpoint.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Healthcheck handles GET /api/healthcheck.
func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}
