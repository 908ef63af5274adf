package handlers

import (
	"net/http"

	"github.com/aish-attendance/attendance-api/internal/middleware"
	"github.com/aish-attendance/attendance-api/internal/services"
	"github.com/aish-attendance/attendance-api/pkg/jwt"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles the login, callback, logout and whoami endpoints.
type AuthHandler struct {
	auth         *services.AuthService
	factory      *salesforce.Factory
	tokenManager *jwt.TokenManager
	cookieDomain string
	cookieSecure bool
	frontendURL  string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *services.AuthService, factory *salesforce.Factory, tokenManager *jwt.TokenManager, cookieDomain string, cookieSecure bool, frontendURL string) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		factory:      factory,
		tokenManager: tokenManager,
		cookieDomain: cookieDomain,
		cookieSecure: cookieSecure,
		frontendURL:  frontendURL,
	}
}

// Login handles GET /api/v1/auth/login.
// Redirects the browser into the Salesforce web server OAuth flow.
func (h *AuthHandler) Login(c *gin.Context) {
	c.Redirect(http.StatusFound, h.auth.LoginURL())
}

// Callback handles GET /api/v1/auth/callback.
// Redeems the authorization code, opens a session and sends the browser back
// to the front-end.
func (h *AuthHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		respondError(c, http.StatusUnauthorized, "Login was denied", nil)
		return
	}

	sessionID, err := h.auth.HandleCallback(c.Request.Context(), c.Query("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if !h.issueCookie(c, sessionID) {
		return
	}

	if h.frontendURL != "" {
		c.Redirect(http.StatusFound, h.frontendURL)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_in"})
}

// LoginPassword handles POST /api/v1/auth/login-password.
// Opens a session through the configured username-password flow.
func (h *AuthHandler) LoginPassword(c *gin.Context) {
	if !h.auth.PasswordLoginAvailable() {
		respondError(c, http.StatusNotImplemented, "Username-password login is not configured", nil)
		return
	}

	sessionID, _, err := h.auth.LoginWithPassword(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Login failed", err)
		return
	}

	if !h.issueCookie(c, sessionID) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_in"})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionID := middleware.GetSessionID(c); sessionID != "" {
		h.auth.Logout(sessionID)
	}
	middleware.ClearSessionCookie(c, h.cookieDomain, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// WhoAmI handles GET /api/v1/auth/whoami.
// Returns the identity document of the session's Salesforce user.
func (h *AuthHandler) WhoAmI(c *gin.Context) {
	cred, err := middleware.GetCredential(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	identity, err := h.auth.WhoAmI(c.Request.Context(), h.factory.ClientFor(cred))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, identity)
}

func (h *AuthHandler) issueCookie(c *gin.Context, sessionID string) bool {
	token, err := h.tokenManager.GenerateToken(sessionID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error", err)
		return false
	}
	middleware.SetSessionCookie(c, token, int(h.tokenManager.GetExpirationTime().Seconds()), h.cookieDomain, h.cookieSecure)
	return true
}
