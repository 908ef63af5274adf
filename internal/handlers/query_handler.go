package handlers

import (
	"net/http"

	"github.com/aish-attendance/attendance-api/internal/middleware"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/gin-gonic/gin"
)

// QueryHandler exposes the raw SOQL passthrough. The session credential
// scopes every query to the caller's own Salesforce permissions, so this adds
// no access beyond what the user already holds.
type QueryHandler struct {
	factory *salesforce.Factory
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(factory *salesforce.Factory) *QueryHandler {
	return &QueryHandler{factory: factory}
}

// Query handles GET /api/v1/query.
func (h *QueryHandler) Query(c *gin.Context) {
	cred, err := middleware.GetCredential(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	soql := c.Query("soql")
	if soql == "" {
		respondError(c, http.StatusBadRequest, "Missing required parameter: soql", nil)
		return
	}

	result, err := h.factory.ClientFor(cred).Query(c.Request.Context(), soql)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
