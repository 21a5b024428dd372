package portalauth

import (
	"context"
	"encoding/json"

	"github.com/xpert786/portalauth/role"
	"github.com/xpert786/portalauth/session"
)

// Principal is the authenticated identity snapshot. See [session.Principal].
type Principal = session.Principal

// Tokens is the bearer token pair. See [session.Tokens].
type Tokens = session.Tokens

// CustomRole is the preparer permission override. See [role.CustomRole].
type CustomRole = role.CustomRole

// InvitationStatus is the server-reported state of an invitation token.
type InvitationStatus string

const (
	// InvitationPending marks a token that can still be accepted or denied.
	InvitationPending InvitationStatus = "pending"
	// InvitationExpired marks a token past its expiry.
	InvitationExpired InvitationStatus = "expired"
	// InvitationAccepted marks a token consumed by an earlier accept.
	InvitationAccepted InvitationStatus = "accepted"
	// InvitationDenied marks a token the invitee declined.
	InvitationDenied InvitationStatus = "denied"
	// InvitationInvalid marks a token the server does not recognize.
	InvitationInvalid InvitationStatus = "invalid"
)

// Invitation is a firm-issued offer to create an account with a
// predetermined role. It is fetched by token and either consumed or
// abandoned; it is never cached beyond the current flow.
type Invitation struct {
	Token        string           `json:"token"`
	Status       InvitationStatus `json:"status"`
	Type         string           `json:"invite_type,omitempty"`
	Role         string           `json:"role,omitempty"`
	FirmName     string           `json:"firm_name,omitempty"`
	InviteeName  string           `json:"invitee_name,omitempty"`
	InviteeEmail string           `json:"invitee_email,omitempty"`
}

// TwoFactorSetup is the ephemeral enrollment challenge: a provisioning
// secret plus QR payload, live only for the duration of the enrollment UI.
// It is never persisted to the session store.
type TwoFactorSetup struct {
	QRCode       string
	Secret       string
	Instructions string
	// AlreadyEnabled is set when enrollment short-circuited because the
	// principal has two-factor configured; the other fields are empty.
	AlreadyEnabled bool
}

// LoginOutcome is the raw backend authentication result before any session
// persistence: either a principal with tokens, or a pending two-factor
// challenge marker.
type LoginOutcome struct {
	Principal         *Principal
	Tokens            Tokens
	ChallengeRequired bool
	ChallengeType     string
}

// LoginResult is returned by [Engine.Login] and the flows that complete a
// login. When ChallengeRequired is set no session was written and Landing
// points at the two-factor entry screen.
type LoginResult struct {
	Principal         *Principal
	Tokens            Tokens
	ChallengeRequired bool
	Landing           string
}

// AcceptInvitationInput carries the invite-accept form.
type AcceptInvitationInput struct {
	Token           string
	Password        string
	PasswordConfirm string
	Phone           string
}

// RegisterInput carries the client self-signup form.
type RegisterInput struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Password        string
	PasswordConfirm string
}

// RegisterResult is returned by [Engine.RegisterClient]. When the implicit
// post-signup login fails, LoggedIn is false and ManualLoginEmail carries
// the address to pre-fill on the login screen; the signup itself succeeded.
type RegisterResult struct {
	LoggedIn         bool
	ManualLoginEmail string
	Login            *LoginResult
}

// ResetPasswordInput carries the self-service reset form (4-digit OTP).
type ResetPasswordInput struct {
	Email           string
	Otp             string
	Password        string
	PasswordConfirm string
}

// ForceChangePasswordInput carries the forced-reset form, where a temporary
// password stands in for the OTP.
type ForceChangePasswordInput struct {
	Email           string
	TempPassword    string
	Password        string
	PasswordConfirm string
}

// ContextList is the server-confirmed role context fetched by the root-path
// re-check. It supersedes the cached role tags when available.
type ContextList struct {
	Roles      []string
	CustomRole *CustomRole
	Firms      json.RawMessage
}

// Backend is the interface the Engine consumes to reach the portal API. The
// httpapi package provides the production implementation; tests substitute
// fakes. Every method maps to one endpoint and returns either a typed result
// or a sentinel error from this package (field-level failures arrive as
// [FieldErrors]).
type Backend interface {
	Login(ctx context.Context, email, password string) (*LoginOutcome, error)
	VerifyTwoFactorLogin(ctx context.Context, email, code string) (*LoginOutcome, error)
	SetupTwoFactor(ctx context.Context, accessToken string) (*TwoFactorSetup, error)
	VerifyTwoFactorSetup(ctx context.Context, accessToken, code, secret string) error
	VerifyEmailOTP(ctx context.Context, accessToken, code string) error
	VerifyPhoneOTP(ctx context.Context, accessToken, code string) error
	FetchInvitation(ctx context.Context, token string) (*Invitation, error)
	AcceptInvitation(ctx context.Context, in AcceptInvitationInput) (*LoginOutcome, error)
	DeclineInvitation(ctx context.Context, token, inviteType string) error
	Register(ctx context.Context, in RegisterInput) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
	ForceChangePassword(ctx context.Context, in ForceChangePasswordInput) error
	AvailableContexts(ctx context.Context, accessToken string) (*ContextList, error)
	Logout(ctx context.Context, accessToken string) error
}
