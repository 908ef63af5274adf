package services

import (
	"context"

	"github.com/aish-attendance/attendance-api/internal/session"
	apperrors "github.com/aish-attendance/attendance-api/pkg/errors"
	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"go.uber.org/zap"
)

// Scope and prompt requested during the web server OAuth flow. offline_access
// yields a refresh token; prompt forces account selection so shared devices
// don't inherit a stale login.
const (
	oauthScope  = "api refresh_token offline_access id web"
	oauthPrompt = "login consent"
)

// AuthService owns the session lifecycle: establishing credentials through
// either OAuth flow, storing them server-side, and tearing them down.
type AuthService struct {
	oauth    *salesforce.OAuth
	sessions *session.Store
}

// NewAuthService creates an auth service.
func NewAuthService(oauth *salesforce.OAuth, sessions *session.Store) *AuthService {
	return &AuthService{oauth: oauth, sessions: sessions}
}

// LoginURL returns the authorization URL to redirect the browser to.
func (s *AuthService) LoginURL() string {
	return s.oauth.AuthorizationURL(oauthScope, oauthPrompt)
}

// HandleCallback redeems the authorization code and opens a session.
func (s *AuthService) HandleCallback(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", apperrors.InvalidInputError("code", "missing authorization code")
	}

	cred, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		logger.Warn("OAuth code exchange failed", zap.Error(err))
		return "", err
	}

	sessionID := s.sessions.Create(cred)
	logger.Info("Session opened via OAuth callback",
		zap.String("user_id", cred.UserID),
		zap.String("org_id", cred.OrgID))
	return sessionID, nil
}

// PasswordLoginAvailable reports whether the username-password fallback is
// configured.
func (s *AuthService) PasswordLoginAvailable() bool {
	return s.oauth.PasswordLoginConfigured()
}

// LoginWithPassword opens a session through the username-password flow. Also
// used as the silent fallback when an API request arrives without a session.
func (s *AuthService) LoginWithPassword(ctx context.Context) (string, salesforce.Credential, error) {
	cred, err := s.oauth.LoginWithPassword(ctx)
	if err != nil {
		logger.Warn("Username-password login failed", zap.Error(err))
		return "", salesforce.Credential{}, err
	}

	sessionID := s.sessions.Create(cred)
	logger.Info("Session opened via username-password flow",
		zap.String("user_id", cred.UserID))
	return sessionID, cred, nil
}

// Logout drops the session. Unknown IDs are a no-op.
func (s *AuthService) Logout(sessionID string) {
	s.sessions.Delete(sessionID)
}

// WhoAmI returns the OpenID userinfo document for the session's credential.
func (s *AuthService) WhoAmI(ctx context.Context, api salesforce.API) (map[string]any, error) {
	return api.Identity(ctx)
}
