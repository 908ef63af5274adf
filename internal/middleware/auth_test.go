package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Initialize(logger.Config{Level: "error", Environment: "development"})
}

func newBearerRouter(validToken string) (*gin.Engine, *bool) {
	router := gin.New()
	handlerCalled := false
	router.Use(TokenAuthMiddleware(validToken))
	router.GET("/test", func(c *gin.Context) {
		handlerCalled = true
		c.Status(http.StatusOK)
	})
	return router, &handlerCalled
}

func TestTokenAuthMiddleware_ValidToken(t *testing.T) {
	router, handlerCalled := newBearerRouter("front-end-token")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer front-end-token")

	router.ServeHTTP(w, req)

	assert.True(t, *handlerCalled)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTokenAuthMiddleware_InvalidToken(t *testing.T) {
	router, handlerCalled := newBearerRouter("front-end-token")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer wrong")

	router.ServeHTTP(w, req)

	assert.False(t, *handlerCalled)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid bearer token")
}

func TestTokenAuthMiddleware_MissingHeader(t *testing.T) {
	router, handlerCalled := newBearerRouter("front-end-token")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)

	router.ServeHTTP(w, req)

	assert.False(t, *handlerCalled)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Missing bearer token")
}

func TestTokenAuthMiddleware_NotBearerScheme(t *testing.T) {
	router, handlerCalled := newBearerRouter("front-end-token")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Basic front-end-token")

	router.ServeHTTP(w, req)

	assert.False(t, *handlerCalled)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
