package handlers

import (
	"net/http"

	"github.com/aish-attendance/attendance-api/internal/middleware"
	"github.com/aish-attendance/attendance-api/internal/services"
	"github.com/aish-attendance/attendance-api/pkg/dateutil"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/gin-gonic/gin"
)

// RosterHandler handles the teacher roster endpoint.
type RosterHandler struct {
	roster  *services.RosterService
	factory *salesforce.Factory
}

// NewRosterHandler creates a new RosterHandler.
func NewRosterHandler(roster *services.RosterService, factory *salesforce.Factory) *RosterHandler {
	return &RosterHandler{roster: roster, factory: factory}
}

// GetByPeriod handles GET /api/v1/teachers/by-period.
// start and end default to the current term when omitted.
func (h *RosterHandler) GetByPeriod(c *gin.Context) {
	cred, err := middleware.GetCredential(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	start, err := dateutil.NormalizeOrDefault(c.Query("start"), services.DefaultPeriodStart)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), err)
		return
	}
	end, err := dateutil.NormalizeOrDefault(c.Query("end"), services.DefaultPeriodEnd)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	response, err := h.roster.TeachersByPeriod(c.Request.Context(), h.factory.ClientFor(cred), start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
