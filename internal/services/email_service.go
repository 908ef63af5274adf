package services

import (
	"context"

	"github.com/aish-attendance/attendance-api/internal/models"
	apperrors "github.com/aish-attendance/attendance-api/pkg/errors"
	"github.com/aish-attendance/attendance-api/pkg/mailgun"
)

// EmailService sends the class add request notification.
type EmailService struct {
	sender *mailgun.Sender
}

// NewEmailService creates an email service.
func NewEmailService(sender *mailgun.Sender) *EmailService {
	return &EmailService{sender: sender}
}

// RequestClassAdd emails the registrar that a teacher wants a student added
// to a class.
func (s *EmailService) RequestClassAdd(ctx context.Context, payload models.ClassAddRequestPayload) error {
	if !s.sender.Configured() {
		return apperrors.ConfigurationError("email delivery is not configured")
	}

	return s.sender.SendClassAddRequest(ctx, mailgun.ClassAddRequest{
		To:          payload.To,
		ClassName:   payload.ClassName,
		TeacherName: payload.TeacherName,
		StudentName: payload.StudentName,
	})
}
