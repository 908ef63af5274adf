package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aish-attendance/attendance-api/internal/services"
	"github.com/aish-attendance/attendance-api/pkg/httpclient"
	"github.com/aish-attendance/attendance-api/pkg/mailgun"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEmailRouter(mailgunURL string) *gin.Engine {
	cfg := mailgun.Config{BaseURL: mailgunURL}
	if mailgunURL != "" {
		cfg.APIKey = "key"
		cfg.Domain = "mg.example.com"
		cfg.From = "noreply@mg.example.com"
	}
	sender := mailgun.NewSender(cfg, httpclient.NewStandardClient())
	h := NewEmailHandler(services.NewEmailService(sender))

	router := gin.New()
	router.POST("/classes/request-add", h.RequestClassAdd)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestRequestClassAdd(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"<msg@mg>","message":"Queued"}`))
	}))
	defer server.Close()

	router := newEmailRouter(server.URL)
	w := postJSON(router, "/classes/request-add",
		`{"to":"registrar@example.com","className":"Gemara A","teacherName":"Weiss","studentName":"Cohen"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sent")
	assert.Equal(t, "/v3/mg.example.com/messages", gotPath)
}

func TestRequestClassAdd_InvalidEmail(t *testing.T) {
	router := newEmailRouter("")
	w := postJSON(router, "/classes/request-add",
		`{"to":"not-an-email","className":"Gemara A","teacherName":"Weiss","studentName":"Cohen"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Validation failed")
	assert.Contains(t, w.Body.String(), "Invalid email format")
}

func TestRequestClassAdd_NotConfigured(t *testing.T) {
	router := newEmailRouter("")
	w := postJSON(router, "/classes/request-add",
		`{"to":"registrar@example.com","className":"Gemara A","teacherName":"Weiss","studentName":"Cohen"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "email delivery is not configured")
}
