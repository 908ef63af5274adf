// Package mailgun sends transactional email through the Mailgun messages
// API. Only the one message shape the relay needs is implemented.
package mailgun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aish-attendance/attendance-api/pkg/httpclient"
	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/metrics"
	"github.com/aish-attendance/attendance-api/pkg/retry"
	"go.uber.org/zap"
)

// Config holds Mailgun API settings.
type Config struct {
	APIKey  string
	Domain  string
	BaseURL string
	From    string
}

// Sender sends email through the Mailgun REST API.
type Sender struct {
	cfg  Config
	http httpclient.Client
}

// NewSender creates a Mailgun sender.
func NewSender(cfg Config, http httpclient.Client) *Sender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mailgun.net"
	}
	return &Sender{cfg: cfg, http: http}
}

// Configured reports whether the sender has the settings required to send.
func (s *Sender) Configured() bool {
	return s.cfg.APIKey != "" && s.cfg.Domain != ""
}

// ClassAddRequest is the payload for a class add request notification.
type ClassAddRequest struct {
	To          string
	ClassName   string
	TeacherName string
	StudentName string
}

// SendClassAddRequest emails the registrar that a teacher wants a student
// added to a class.
func (s *Sender) SendClassAddRequest(ctx context.Context, req ClassAddRequest) error {
	if !s.Configured() {
		return fmt.Errorf("mailgun is not configured")
	}

	from := s.cfg.From
	if from == "" {
		from = fmt.Sprintf("Aish Attendance <no-reply@%s>", s.cfg.Domain)
	}

	form := url.Values{}
	form.Set("from", from)
	form.Set("to", req.To)
	form.Set("subject", fmt.Sprintf("Class Add Request: %s", req.ClassName))
	form.Set("text", fmt.Sprintf("%s has requested that %s be added to the following class: %s",
		req.TeacherName, req.StudentName, req.ClassName))

	start := time.Now()

	retryCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	err := retry.Do(retryCtx, retry.MailgunConfig(), "sendClassAddRequest", func() error {
		return s.post(retryCtx, form)
	})

	duration := metrics.MeasureDuration(start)

	if err != nil {
		metrics.EmailSends.WithLabelValues("error").Inc()
		logger.LogAPICall(ctx, "mailgun", "sendClassAddRequest", "error", duration, zap.Error(err))
		return err
	}

	metrics.EmailSends.WithLabelValues("success").Inc()
	logger.LogAPICall(ctx, "mailgun", "sendClassAddRequest", "success", duration,
		zap.String("class", req.ClassName))

	return nil
}

func (s *Sender) post(ctx context.Context, form url.Values) error {
	endpoint := fmt.Sprintf("%s/v3/%s/messages", s.cfg.BaseURL, s.cfg.Domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build mailgun request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", s.cfg.APIKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mailgun returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
