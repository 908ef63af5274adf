package handlers

import (
	"errors"
	"net/http"

	"github.com/aish-attendance/attendance-api/internal/middleware"
	"github.com/aish-attendance/attendance-api/internal/models"
	"github.com/aish-attendance/attendance-api/internal/services"
	"github.com/aish-attendance/attendance-api/pkg/dateutil"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/gin-gonic/gin"
)

// MeetingHandler handles the attendance read and write endpoints.
type MeetingHandler struct {
	attendance *services.AttendanceService
	factory    *salesforce.Factory
}

// NewMeetingHandler creates a new MeetingHandler.
func NewMeetingHandler(attendance *services.AttendanceService, factory *salesforce.Factory) *MeetingHandler {
	return &MeetingHandler{attendance: attendance, factory: factory}
}

// GetByMeeting handles GET /api/v1/attendance/by-meeting.
// Accepts either meetingId, or classId plus date, with optional classField
// and dateField overrides for discovery.
func (h *MeetingHandler) GetByMeeting(c *gin.Context) {
	api, ok := h.api(c)
	if !ok {
		return
	}

	q := models.MeetingQuery{
		MeetingID:          c.Query("meetingId"),
		ClassID:            c.Query("classId"),
		ClassFieldOverride: c.Query("classField"),
		DateFieldOverride:  c.Query("dateField"),
	}

	if q.MeetingID == "" {
		if q.ClassID == "" {
			respondError(c, http.StatusBadRequest, "Provide meetingId, or classId and date", nil)
			return
		}
		date, err := dateutil.Normalize(c.Query("date"))
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error(), err)
			return
		}
		q.Date = date
	}

	response, err := h.attendance.ListByMeeting(c.Request.Context(), api, q)
	if err != nil {
		// A missing meeting keeps the attempted field bindings in the body so
		// schema drift can be diagnosed from the response alone.
		var notFound *services.MeetingNotFoundError
		if errors.As(err, &notFound) {
			attachError(c, err)
			c.JSON(http.StatusNotFound, gin.H{
				"error":             notFound.Error(),
				"classId":           q.ClassID,
				"start":             q.Date,
				"meeting":           nil,
				"usedMeetingFields": notFound.Used,
			})
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ApplyUpdates handles POST /api/v1/attendance/updates.
// Applies attendance and supervision updates and returns per-category
// ledgers. Partial failure is reported in the 200 response, not as an HTTP
// error.
func (h *MeetingHandler) ApplyUpdates(c *gin.Context) {
	api, ok := h.api(c)
	if !ok {
		return
	}

	var req models.ApplyUpdatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if len(req.Attendance) == 0 && len(req.Supervision) == 0 {
		respondError(c, http.StatusBadRequest, "No updates submitted", nil)
		return
	}

	response, err := h.attendance.ApplyUpdates(c.Request.Context(), api, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *MeetingHandler) api(c *gin.Context) (salesforce.API, bool) {
	cred, err := middleware.GetCredential(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return nil, false
	}
	return h.factory.ClientFor(cred), true
}
