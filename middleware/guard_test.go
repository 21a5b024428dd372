package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/xpert786/portalauth"
	"github.com/xpert786/portalauth/role"
	"github.com/xpert786/portalauth/route"
)

// stubBackend satisfies portalauth.Backend for guard tests; only Login is
// exercised.
type stubBackend struct {
	outcome *portalauth.LoginOutcome
}

func (s *stubBackend) Login(ctx context.Context, email, password string) (*portalauth.LoginOutcome, error) {
	return s.outcome, nil
}

func (s *stubBackend) VerifyTwoFactorLogin(ctx context.Context, email, code string) (*portalauth.LoginOutcome, error) {
	return nil, portalauth.ErrTwoFactorDisabled
}

func (s *stubBackend) SetupTwoFactor(ctx context.Context, accessToken string) (*portalauth.TwoFactorSetup, error) {
	return nil, portalauth.ErrNotAuthenticated
}

func (s *stubBackend) VerifyTwoFactorSetup(ctx context.Context, accessToken, code, secret string) error {
	return portalauth.ErrNotAuthenticated
}

func (s *stubBackend) VerifyEmailOTP(ctx context.Context, accessToken, code string) error {
	return portalauth.ErrInvalidOtp
}

func (s *stubBackend) VerifyPhoneOTP(ctx context.Context, accessToken, code string) error {
	return portalauth.ErrInvalidOtp
}

func (s *stubBackend) FetchInvitation(ctx context.Context, token string) (*portalauth.Invitation, error) {
	return nil, portalauth.ErrInvalidToken
}

func (s *stubBackend) AcceptInvitation(ctx context.Context, in portalauth.AcceptInvitationInput) (*portalauth.LoginOutcome, error) {
	return nil, portalauth.ErrInvalidToken
}

func (s *stubBackend) DeclineInvitation(ctx context.Context, token, inviteType string) error {
	return portalauth.ErrInvalidToken
}

func (s *stubBackend) Register(ctx context.Context, in portalauth.RegisterInput) error {
	return nil
}

func (s *stubBackend) ForgotPassword(ctx context.Context, email string) error {
	return nil
}

func (s *stubBackend) ResetPassword(ctx context.Context, in portalauth.ResetPasswordInput) error {
	return nil
}

func (s *stubBackend) ForceChangePassword(ctx context.Context, in portalauth.ForceChangePasswordInput) error {
	return nil
}

func (s *stubBackend) AvailableContexts(ctx context.Context, accessToken string) (*portalauth.ContextList, error) {
	return nil, portalauth.ErrNetwork
}

func (s *stubBackend) Logout(ctx context.Context, accessToken string) error {
	return nil
}

func newGuardEngine(t *testing.T, outcome *portalauth.LoginOutcome) *portalauth.Engine {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	engine, err := portalauth.New().
		WithRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})).
		WithBackend(&stubBackend{outcome: outcome}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if outcome != nil {
		if _, err := engine.Login(context.Background(), outcome.Principal.Email, "Abcdef1!", false); err != nil {
			t.Fatalf("seed login failed: %v", err)
		}
	}
	return engine
}

func firmAdminOutcome() *portalauth.LoginOutcome {
	return &portalauth.LoginOutcome{
		Principal: &portalauth.Principal{
			ID:               "u-2",
			Email:            "admin@example.com",
			Roles:            []string{role.Admin},
			EmailVerified:    true,
			Completed:        true,
			SubscriptionPlan: "pro",
		},
		Tokens: portalauth.Tokens{Access: "acc-2"},
	}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestGuardRedirectsAnonymous(t *testing.T) {
	engine := newGuardEngine(t, nil)

	cases := []struct {
		name string
		path string
		want string
	}{
		{"plain path", "/firm/dashboard", route.PathLogin + "?returnTo=%2Ffirm%2Fdashboard"},
		// The original path must come back out of the query intact even
		// when it carries characters with query-string meaning.
		{"reserved characters", "/docs/2024&q=1", route.PathLogin + "?returnTo=%2Fdocs%2F2024%26q%3D1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path = tc.path
			Guard(engine, okHandler).ServeHTTP(rec, req)

			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want redirect", rec.Code)
			}
			loc := rec.Header().Get("Location")
			if loc != tc.want {
				t.Fatalf("location = %q, want %q", loc, tc.want)
			}
			u, err := url.Parse(loc)
			if err != nil {
				t.Fatalf("location does not parse: %v", err)
			}
			if got := u.Query().Get("returnTo"); got != tc.path {
				t.Fatalf("returnTo round-trips to %q, want %q", got, tc.path)
			}
		})
	}
}

func TestGuardAdmitsAuthenticated(t *testing.T) {
	engine := newGuardEngine(t, firmAdminOutcome())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/firm/dashboard", nil)
	Guard(engine, okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAreaAdmitsMatchingRole(t *testing.T) {
	engine := newGuardEngine(t, firmAdminOutcome())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/firm/settings", nil)
	RequireArea(engine, "/firm/", okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAreaRedirectsWrongRole(t *testing.T) {
	engine := newGuardEngine(t, firmAdminOutcome())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/client/documents", nil)
	RequireArea(engine, "/client/", okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != route.PathFirmAdmin {
		t.Fatalf("location = %q, want the admin's own landing", loc)
	}
}

func TestRequireAreaRedirectsAnonymous(t *testing.T) {
	engine := newGuardEngine(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/firm/settings", nil)
	RequireArea(engine, "/firm/", okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}
}
