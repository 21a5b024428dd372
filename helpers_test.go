package portalauth

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/xpert786/portalauth/role"
)

// fakeBackend implements Backend with per-method hooks. Unset hooks fail the
// calling test so a flow can never silently reach an endpoint it should not.
type fakeBackend struct {
	t *testing.T

	loginCalls int64

	LoginFn                func(ctx context.Context, email, password string) (*LoginOutcome, error)
	VerifyTwoFactorLoginFn func(ctx context.Context, email, code string) (*LoginOutcome, error)
	SetupTwoFactorFn       func(ctx context.Context, accessToken string) (*TwoFactorSetup, error)
	VerifyTwoFactorSetupFn func(ctx context.Context, accessToken, code, secret string) error
	VerifyEmailOTPFn       func(ctx context.Context, accessToken, code string) error
	VerifyPhoneOTPFn       func(ctx context.Context, accessToken, code string) error
	FetchInvitationFn      func(ctx context.Context, token string) (*Invitation, error)
	AcceptInvitationFn     func(ctx context.Context, in AcceptInvitationInput) (*LoginOutcome, error)
	DeclineInvitationFn    func(ctx context.Context, token, inviteType string) error
	RegisterFn             func(ctx context.Context, in RegisterInput) error
	ForgotPasswordFn       func(ctx context.Context, email string) error
	ResetPasswordFn        func(ctx context.Context, in ResetPasswordInput) error
	ForceChangePasswordFn  func(ctx context.Context, in ForceChangePasswordInput) error
	AvailableContextsFn    func(ctx context.Context, accessToken string) (*ContextList, error)
	LogoutFn               func(ctx context.Context, accessToken string) error
}

func (b *fakeBackend) unexpected(name string) {
	b.t.Helper()
	b.t.Fatalf("unexpected backend call: %s", name)
}

func (b *fakeBackend) Login(ctx context.Context, email, password string) (*LoginOutcome, error) {
	atomic.AddInt64(&b.loginCalls, 1)
	if b.LoginFn == nil {
		b.unexpected("Login")
	}
	return b.LoginFn(ctx, email, password)
}

func (b *fakeBackend) VerifyTwoFactorLogin(ctx context.Context, email, code string) (*LoginOutcome, error) {
	if b.VerifyTwoFactorLoginFn == nil {
		b.unexpected("VerifyTwoFactorLogin")
	}
	return b.VerifyTwoFactorLoginFn(ctx, email, code)
}

func (b *fakeBackend) SetupTwoFactor(ctx context.Context, accessToken string) (*TwoFactorSetup, error) {
	if b.SetupTwoFactorFn == nil {
		b.unexpected("SetupTwoFactor")
	}
	return b.SetupTwoFactorFn(ctx, accessToken)
}

func (b *fakeBackend) VerifyTwoFactorSetup(ctx context.Context, accessToken, code, secret string) error {
	if b.VerifyTwoFactorSetupFn == nil {
		b.unexpected("VerifyTwoFactorSetup")
	}
	return b.VerifyTwoFactorSetupFn(ctx, accessToken, code, secret)
}

func (b *fakeBackend) VerifyEmailOTP(ctx context.Context, accessToken, code string) error {
	if b.VerifyEmailOTPFn == nil {
		b.unexpected("VerifyEmailOTP")
	}
	return b.VerifyEmailOTPFn(ctx, accessToken, code)
}

func (b *fakeBackend) VerifyPhoneOTP(ctx context.Context, accessToken, code string) error {
	if b.VerifyPhoneOTPFn == nil {
		b.unexpected("VerifyPhoneOTP")
	}
	return b.VerifyPhoneOTPFn(ctx, accessToken, code)
}

func (b *fakeBackend) FetchInvitation(ctx context.Context, token string) (*Invitation, error) {
	if b.FetchInvitationFn == nil {
		b.unexpected("FetchInvitation")
	}
	return b.FetchInvitationFn(ctx, token)
}

func (b *fakeBackend) AcceptInvitation(ctx context.Context, in AcceptInvitationInput) (*LoginOutcome, error) {
	if b.AcceptInvitationFn == nil {
		b.unexpected("AcceptInvitation")
	}
	return b.AcceptInvitationFn(ctx, in)
}

func (b *fakeBackend) DeclineInvitation(ctx context.Context, token, inviteType string) error {
	if b.DeclineInvitationFn == nil {
		b.unexpected("DeclineInvitation")
	}
	return b.DeclineInvitationFn(ctx, token, inviteType)
}

func (b *fakeBackend) Register(ctx context.Context, in RegisterInput) error {
	if b.RegisterFn == nil {
		b.unexpected("Register")
	}
	return b.RegisterFn(ctx, in)
}

func (b *fakeBackend) ForgotPassword(ctx context.Context, email string) error {
	if b.ForgotPasswordFn == nil {
		b.unexpected("ForgotPassword")
	}
	return b.ForgotPasswordFn(ctx, email)
}

func (b *fakeBackend) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if b.ResetPasswordFn == nil {
		b.unexpected("ResetPassword")
	}
	return b.ResetPasswordFn(ctx, in)
}

func (b *fakeBackend) ForceChangePassword(ctx context.Context, in ForceChangePasswordInput) error {
	if b.ForceChangePasswordFn == nil {
		b.unexpected("ForceChangePassword")
	}
	return b.ForceChangePasswordFn(ctx, in)
}

func (b *fakeBackend) AvailableContexts(ctx context.Context, accessToken string) (*ContextList, error) {
	if b.AvailableContextsFn == nil {
		b.unexpected("AvailableContexts")
	}
	return b.AvailableContextsFn(ctx, accessToken)
}

func (b *fakeBackend) Logout(ctx context.Context, accessToken string) error {
	if b.LogoutFn == nil {
		// Logout is best-effort in most flows; default to success.
		return nil
	}
	return b.LogoutFn(ctx, accessToken)
}

func (b *fakeBackend) LoginCalls() int64 {
	return atomic.LoadInt64(&b.loginCalls)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func newTestEngine(t *testing.T, cfg Config, backend *fakeBackend) *Engine {
	t.Helper()

	backend.t = t
	engine, err := New().
		WithConfig(cfg).
		WithRedis(newTestRedis(t)).
		WithBackend(backend).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func clientOutcome() *LoginOutcome {
	return &LoginOutcome{
		Principal: &Principal{
			ID:            "u-1",
			Email:         "alice@example.com",
			Roles:         []string{role.Client},
			EmailVerified: true,
			Completed:     true,
		},
		Tokens: Tokens{Access: "acc-1", Refresh: "ref-1"},
	}
}
