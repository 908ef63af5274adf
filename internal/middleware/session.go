package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aish-attendance/attendance-api/internal/services"
	"github.com/aish-attendance/attendance-api/internal/session"
	"github.com/aish-attendance/attendance-api/pkg/jwt"
	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "sf_session"

	// credentialContextKey stores the resolved Salesforce credential.
	credentialContextKey = "sf_credential"

	// sessionIDContextKey stores the server-side session ID.
	sessionIDContextKey = "sf_session_id"
)

var (
	ErrNoCredential      = errors.New("credential not found in context")
	ErrInvalidCredential = errors.New("invalid credential type")
)

// SessionMiddleware resolves the session cookie to a Salesforce credential
// and adds it to the request context. When no usable session exists and the
// username-password flow is configured, a service session is opened silently
// instead of rejecting the request, matching front-ends that never run the
// OAuth flow themselves.
func SessionMiddleware(tokenManager *jwt.TokenManager, store *session.Store, auth *services.AuthService, cookieDomain string, cookieSecure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cred, sessionID, ok := resolveCookie(c, tokenManager, store); ok {
			c.Set(credentialContextKey, cred)
			c.Set(sessionIDContextKey, sessionID)
			c.Next()
			return
		}

		if !auth.PasswordLoginAvailable() {
			clearSessionCookie(c, cookieDomain, cookieSecure)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		sessionID, cred, err := auth.LoginWithPassword(c.Request.Context())
		if err != nil {
			_ = c.Error(fmt.Errorf("password fallback login failed: %w", err)) //nolint:errcheck
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		token, err := tokenManager.GenerateToken(sessionID)
		if err != nil {
			_ = c.Error(fmt.Errorf("failed to issue session token: %w", err)) //nolint:errcheck
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		logger.Info("Opened fallback session for request",
			zap.String("path", c.Request.URL.Path))

		SetSessionCookie(c, token, int(tokenManager.GetExpirationTime().Seconds()), cookieDomain, cookieSecure)
		c.Set(credentialContextKey, cred)
		c.Set(sessionIDContextKey, sessionID)
		c.Next()
	}
}

// resolveCookie validates the session cookie and looks up its credential. A
// valid JWT whose session was evicted from the store counts as no session.
func resolveCookie(c *gin.Context, tokenManager *jwt.TokenManager, store *session.Store) (salesforce.Credential, string, bool) {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		return salesforce.Credential{}, "", false
	}

	claims, err := tokenManager.ValidateToken(cookie)
	if err != nil {
		logger.Debug("Rejected session cookie", zap.Error(err))
		return salesforce.Credential{}, "", false
	}

	cred, ok := store.Get(claims.SessionID)
	if !ok {
		return salesforce.Credential{}, "", false
	}

	return cred, claims.SessionID, true
}

// GetCredential extracts the Salesforce credential from the request context.
func GetCredential(c *gin.Context) (salesforce.Credential, error) {
	val, exists := c.Get(credentialContextKey)
	if !exists {
		return salesforce.Credential{}, ErrNoCredential
	}

	cred, ok := val.(salesforce.Credential)
	if !ok {
		return salesforce.Credential{}, ErrInvalidCredential
	}

	return cred, nil
}

// GetSessionID extracts the session ID from the request context.
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionIDContextKey)
}

// SetSessionCookie sets the session cookie.
func SetSessionCookie(c *gin.Context, token string, ttlSeconds int, domain string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		SessionCookieName,
		token,
		ttlSeconds,
		"/",
		domain,
		secure,
		true, // HttpOnly
	)
}

// ClearSessionCookie clears the session cookie.
func ClearSessionCookie(c *gin.Context, domain string, secure bool) {
	clearSessionCookie(c, domain, secure)
}

func clearSessionCookie(c *gin.Context, domain string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		SessionCookieName,
		"",
		-1,
		"/",
		domain,
		secure,
		true, // HttpOnly
	)
}
