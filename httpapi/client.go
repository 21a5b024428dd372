package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xpert786/portalauth"
)

// maxBodyBytes caps how much of a response body is read. API envelopes are
// small; anything larger is a misbehaving upstream.
const maxBodyBytes = 1 << 20

// Client talks to the portal REST API. It is safe for concurrent use.
type Client struct {
	base string
	http *http.Client
}

// New builds a Client from the engine's backend configuration. A zero
// Timeout falls back to 15 seconds.
func New(cfg portalauth.BackendConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("httpapi: base URL required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("httpapi: bad base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}, nil
}

// do performs one request and decodes the envelope. The returned error is
// transport-level only; HTTP statuses and envelope failures are left for the
// caller to interpret. token is attached as a bearer when non-empty.
func (c *Client) do(ctx context.Context, method, path, token string, body any) (*envelope, int, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("httpapi: encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("httpapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", portalauth.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response: %v", portalauth.ErrNetwork, err)
	}

	env := &envelope{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, env); err != nil {
			// A non-JSON body on an error status still carries the status.
			if resp.StatusCode >= 400 {
				return env, resp.StatusCode, nil
			}
			return nil, resp.StatusCode, fmt.Errorf("%w: decode response: %v", portalauth.ErrNetwork, err)
		}
	}
	return env, resp.StatusCode, nil
}

// authed wraps do for endpoints that require a session token, folding the
// universal 401 mapping in.
func (c *Client) authed(ctx context.Context, method, path, token string, body any) (*envelope, int, error) {
	env, status, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return nil, status, err
	}
	if status == http.StatusUnauthorized {
		return env, status, portalauth.ErrSessionExpired
	}
	return env, status, nil
}

// apiError is the fallback mapping for statuses no sentinel covers: field
// errors when the envelope carries them, otherwise the server message.
func apiError(env *envelope, status int) error {
	if fe := env.fieldErrors(); fe.Any() {
		return fe
	}
	if env.Message != "" {
		return fmt.Errorf("httpapi: %s", env.Message)
	}
	return fmt.Errorf("httpapi: unexpected status %d", status)
}

// loginData is the wire shape shared by credential exchange, two-factor
// completion, and invitation acceptance.
type loginData struct {
	User              *portalauth.Principal `json:"user"`
	AccessToken       string                `json:"access_token"`
	RefreshToken      string                `json:"refresh_token"`
	TwoFactorRequired bool                  `json:"two_factor_required"`
	ChallengeType     string                `json:"challenge_type"`
}

func (d *loginData) outcome() *portalauth.LoginOutcome {
	return &portalauth.LoginOutcome{
		Principal: d.User,
		Tokens: portalauth.Tokens{
			Access:  d.AccessToken,
			Refresh: d.RefreshToken,
		},
		ChallengeRequired: d.TwoFactorRequired,
		ChallengeType:     d.ChallengeType,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (*portalauth.LoginOutcome, error) {
	env, status, err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, portalauth.ErrInvalidCredentials
	case status >= 400 || !env.Success:
		return nil, apiError(env, status)
	}
	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode login data: %v", portalauth.ErrNetwork, err)
	}
	return data.outcome(), nil
}

func (c *Client) VerifyTwoFactorLogin(ctx context.Context, email, code string) (*portalauth.LoginOutcome, error) {
	env, status, err := c.do(ctx, http.MethodPost, "/auth/verify-2fa-login", "", map[string]string{
		"email": email,
		"code":  code,
	})
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusBadRequest:
		return nil, portalauth.ErrInvalidCode
	case status == http.StatusGone:
		return nil, portalauth.ErrChallengeExpired
	case status >= 400 || !env.Success:
		return nil, apiError(env, status)
	}
	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode login data: %v", portalauth.ErrNetwork, err)
	}
	return data.outcome(), nil
}

func (c *Client) SetupTwoFactor(ctx context.Context, accessToken string) (*portalauth.TwoFactorSetup, error) {
	env, status, err := c.authed(ctx, http.MethodPost, "/auth/2fa/setup", accessToken, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusConflict:
		return nil, portalauth.ErrTwoFactorAlreadyEnabled
	case status >= 400 || !env.Success:
		return nil, apiError(env, status)
	}
	var data struct {
		QRCode       string `json:"qr_code"`
		Secret       string `json:"secret"`
		Instructions string `json:"instructions"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode setup data: %v", portalauth.ErrNetwork, err)
	}
	return &portalauth.TwoFactorSetup{
		QRCode:       data.QRCode,
		Secret:       data.Secret,
		Instructions: data.Instructions,
	}, nil
}

func (c *Client) VerifyTwoFactorSetup(ctx context.Context, accessToken, code, secret string) error {
	env, status, err := c.authed(ctx, http.MethodPost, "/auth/2fa/verify-setup", accessToken, map[string]string{
		"code":   code,
		"secret": secret,
	})
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusBadRequest:
		return portalauth.ErrInvalidCode
	case status >= 400 || !env.Success:
		return apiError(env, status)
	}
	return nil
}

func (c *Client) VerifyEmailOTP(ctx context.Context, accessToken, code string) error {
	return c.verifyOTP(ctx, "/auth/verify-email-otp", accessToken, code)
}

func (c *Client) VerifyPhoneOTP(ctx context.Context, accessToken, code string) error {
	return c.verifyOTP(ctx, "/auth/verify-phone-otp", accessToken, code)
}

func (c *Client) verifyOTP(ctx context.Context, path, accessToken, code string) error {
	env, status, err := c.authed(ctx, http.MethodPost, path, accessToken, map[string]string{
		"otp": code,
	})
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusBadRequest:
		return portalauth.ErrInvalidOtp
	case status >= 400 || !env.Success:
		return apiError(env, status)
	}
	return nil
}

func (c *Client) FetchInvitation(ctx context.Context, token string) (*portalauth.Invitation, error) {
	env, status, err := c.do(ctx, http.MethodGet, "/invitations/"+url.PathEscape(token), "", nil)
	if err != nil {
		return nil, err
	}
	// Dead tokens may still carry invitee data for display; decode the
	// payload before mapping the status so callers keep it.
	var inv portalauth.Invitation
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &inv); err != nil {
			return nil, fmt.Errorf("%w: decode invitation: %v", portalauth.ErrNetwork, err)
		}
	}
	inv.Token = token
	switch {
	case status == http.StatusNotFound:
		return &inv, portalauth.ErrInvalidToken
	case status == http.StatusGone:
		return &inv, portalauth.ErrExpiredToken
	case status == http.StatusConflict:
		return &inv, portalauth.ErrAlreadyAccepted
	case status >= 400 || !env.Success:
		return nil, apiError(env, status)
	}
	if inv.Status == "" {
		inv.Status = portalauth.InvitationPending
	}
	return &inv, nil
}

func (c *Client) AcceptInvitation(ctx context.Context, in portalauth.AcceptInvitationInput) (*portalauth.LoginOutcome, error) {
	env, status, err := c.do(ctx, http.MethodPost, "/invitations/"+url.PathEscape(in.Token)+"/accept", "", map[string]string{
		"password":         in.Password,
		"confirm_password": in.PasswordConfirm,
		"phone_number":     in.Phone,
	})
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, portalauth.ErrInvalidToken
	case status == http.StatusGone:
		return nil, portalauth.ErrExpiredToken
	case status == http.StatusConflict:
		return nil, portalauth.ErrAlreadyAccepted
	case status >= 400 || !env.Success:
		return nil, apiError(env, status)
	}
	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode login data: %v", portalauth.ErrNetwork, err)
	}
	return data.outcome(), nil
}

func (c *Client) DeclineInvitation(ctx context.Context, token, inviteType string) error {
	env, status, err := c.do(ctx, http.MethodPost, "/invitations/"+url.PathEscape(token)+"/decline", "", map[string]string{
		"invite_type": inviteType,
	})
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusNotFound:
		return portalauth.ErrInvalidToken
	case status >= 400 || !env.Success:
		return apiError(env, status)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, in portalauth.RegisterInput) error {
	env, status, err := c.do(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"first_name":       in.FirstName,
		"last_name":        in.LastName,
		"email":            in.Email,
		"phone_number":     in.Phone,
		"password":         in.Password,
		"confirm_password": in.PasswordConfirm,
	})
	if err != nil {
		return err
	}
	if status >= 400 || !env.Success {
		return apiError(env, status)
	}
	return nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	env, status, err := c.do(ctx, http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": email,
	})
	if err != nil {
		return err
	}
	if status >= 400 || !env.Success {
		return apiError(env, status)
	}
	return nil
}

func (c *Client) ResetPassword(ctx context.Context, in portalauth.ResetPasswordInput) error {
	env, status, err := c.do(ctx, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"email":            in.Email,
		"otp":              in.Otp,
		"password":         in.Password,
		"confirm_password": in.PasswordConfirm,
	})
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return portalauth.ErrInvalidOtp
	case status >= 400 || !env.Success:
		return apiError(env, status)
	}
	return nil
}

func (c *Client) ForceChangePassword(ctx context.Context, in portalauth.ForceChangePasswordInput) error {
	env, status, err := c.do(ctx, http.MethodPost, "/auth/force-change-password", "", map[string]string{
		"email":            in.Email,
		"temp_password":    in.TempPassword,
		"password":         in.Password,
		"confirm_password": in.PasswordConfirm,
	})
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusUnauthorized:
		return portalauth.ErrInvalidTempPassword
	case status >= 400 || !env.Success:
		return apiError(env, status)
	}
	return nil
}

func (c *Client) AvailableContexts(ctx context.Context, accessToken string) (*portalauth.ContextList, error) {
	env, status, err := c.authed(ctx, http.MethodGet, "/auth/available-contexts", accessToken, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 || !env.Success {
		return nil, apiError(env, status)
	}
	var data struct {
		Roles      []string               `json:"roles"`
		CustomRole *portalauth.CustomRole `json:"custom_role"`
		Firms      json.RawMessage        `json:"firms"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode contexts: %v", portalauth.ErrNetwork, err)
	}
	return &portalauth.ContextList{
		Roles:      data.Roles,
		CustomRole: data.CustomRole,
		Firms:      data.Firms,
	}, nil
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	env, status, err := c.do(ctx, http.MethodPost, "/auth/logout", accessToken, nil)
	if err != nil {
		return err
	}
	// An already-dead token is a successful logout from the caller's view.
	if status == http.StatusUnauthorized {
		return nil
	}
	if status >= 400 || !env.Success {
		return apiError(env, status)
	}
	return nil
}

var _ portalauth.Backend = (*Client)(nil)
