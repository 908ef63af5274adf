package middleware

import (
	"net/http"
	"strings"

	"github.com/aish-attendance/attendance-api/pkg/jwt"
	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenAuthMiddleware validates the shared bearer token the front-end sends
// on every API call. This gate sits in front of the session layer: it keeps
// anonymous internet traffic away from the relay, it does not identify a user.
func TokenAuthMiddleware(validToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")

		if header == "" || token == header {
			logger.Warn("Missing bearer token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			c.Abort()
			return
		}

		if !jwt.TimingSafeCompare(token, validToken) {
			logger.Warn("Invalid bearer token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid bearer token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
