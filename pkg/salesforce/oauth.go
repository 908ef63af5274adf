package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aish-attendance/attendance-api/pkg/httpclient"
)

// OAuthConfig holds the connected-app settings for the web server flow and
// the username-password fallback.
type OAuthConfig struct {
	ClientID      string
	ClientSecret  string
	CallbackURL   string
	LoginURL      string
	Username      string
	Password      string
	SecurityToken string
}

// OAuth implements the two supported authentication flows against the
// Salesforce token endpoint.
type OAuth struct {
	cfg  OAuthConfig
	http httpclient.Client
}

// NewOAuth creates an OAuth helper.
func NewOAuth(cfg OAuthConfig, http httpclient.Client) *OAuth {
	if cfg.LoginURL == "" {
		cfg.LoginURL = "https://login.salesforce.com"
	}
	return &OAuth{cfg: cfg, http: http}
}

// PasswordLoginConfigured reports whether the username-password fallback flow
// can be used.
func (o *OAuth) PasswordLoginConfigured() bool {
	return o.cfg.Username != "" && o.cfg.Password != ""
}

// AuthorizationURL builds the URL the browser is redirected to for the web
// server OAuth flow.
func (o *OAuth) AuthorizationURL(scope, prompt string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", o.cfg.ClientID)
	q.Set("redirect_uri", o.cfg.CallbackURL)
	if scope != "" {
		q.Set("scope", scope)
	}
	if prompt != "" {
		q.Set("prompt", prompt)
	}
	return o.cfg.LoginURL + "/services/oauth2/authorize?" + q.Encode()
}

// tokenResponse is the token endpoint response shape shared by both flows.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	InstanceURL  string `json:"instance_url"`
	ID           string `json:"id"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// ExchangeCode redeems an authorization code for a session credential.
func (o *OAuth) ExchangeCode(ctx context.Context, code string) (Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", o.cfg.ClientID)
	form.Set("client_secret", o.cfg.ClientSecret)
	form.Set("redirect_uri", o.cfg.CallbackURL)

	return o.requestToken(ctx, form)
}

// LoginWithPassword performs the username-password flow, appending the
// security token to the password when one is configured.
func (o *OAuth) LoginWithPassword(ctx context.Context) (Credential, error) {
	if !o.PasswordLoginConfigured() {
		return Credential{}, fmt.Errorf("username-password login is not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", o.cfg.ClientID)
	form.Set("client_secret", o.cfg.ClientSecret)
	form.Set("username", o.cfg.Username)
	form.Set("password", o.cfg.Password+o.cfg.SecurityToken)

	return o.requestToken(ctx, form)
}

func (o *OAuth) requestToken(ctx context.Context, form url.Values) (Credential, error) {
	endpoint := o.cfg.LoginURL + "/services/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.http.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read token response: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Credential{}, fmt.Errorf("failed to decode token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || tr.AccessToken == "" {
		msg := tr.ErrorDesc
		if msg == "" {
			msg = tr.Error
		}
		if msg == "" {
			msg = "token endpoint rejected the request"
		}
		return Credential{}, &APIError{StatusCode: resp.StatusCode, ErrorCode: tr.Error, Message: msg}
	}

	cred := Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		InstanceURL:  tr.InstanceURL,
	}
	cred.OrgID, cred.UserID = parseIdentityURL(tr.ID)
	return cred, nil
}

// parseIdentityURL extracts the org and user IDs from the identity URL the
// token endpoint returns, e.g. https://login.salesforce.com/id/<org>/<user>.
func parseIdentityURL(id string) (orgID, userID string) {
	u, err := url.Parse(id)
	if err != nil {
		return "", ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "id" {
		return "", ""
	}
	return parts[1], parts[2]
}
