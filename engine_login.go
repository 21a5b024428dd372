package portalauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// inflightKey builds a coalescing key that only matches when every input
// matches. Secrets go in as a digest so they never sit in the key map.
func inflightKey(op string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return op + ":" + hex.EncodeToString(h.Sum(nil)[:12])
}

// Login exchanges an email and password for a session. Local format checks
// run before any network call and surface as [FieldErrors]. Rapid duplicate
// submits with the same credentials are coalesced onto the single in-flight
// exchange, so exactly one backend call is observed. Submits that differ in
// any input each reach the backend.
//
// When the backend signals a pending two-factor requirement and
// [TwoFactorConfig.RequireOnLogin] is set, the result carries
// ChallengeRequired and no session is written; the caller completes the
// exchange through [Engine.VerifyTwoFactorLogin].
func (e *Engine) Login(ctx context.Context, email, password string, remember bool) (*LoginResult, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}

	fieldErrs := FieldErrors{}
	if email == "" {
		fieldErrs.Add("email", "email is required")
	} else if !emailPattern.MatchString(email) {
		fieldErrs.Add("email", "enter a valid email address")
	}
	if password == "" {
		fieldErrs.Add("password", "password is required")
	}
	if fieldErrs.Any() {
		return nil, fieldErrs
	}

	v, err, shared := e.inflight.Do(inflightKey("login", email, password), func() (any, error) {
		return e.loginExchange(ctx, email, password, remember)
	})
	if shared {
		e.metricInc(MetricLoginCoalesced)
	}
	if err != nil {
		return nil, err
	}
	return v.(*LoginResult), nil
}

func (e *Engine) loginExchange(ctx context.Context, email, password string, remember bool) (*LoginResult, error) {
	outcome, err := e.backend.Login(ctx, email, password)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", email, err, nil)
		return nil, err
	}

	if outcome.ChallengeRequired {
		if !e.config.TwoFactor.RequireOnLogin {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrTwoFactorDisabled, nil)
			return nil, ErrTwoFactorDisabled
		}
		e.metricInc(MetricLoginChallengeRequired)
		e.emitAudit(ctx, auditEventLoginChallenge, true, "", email, nil, func() map[string]string {
			return map[string]string{
				"challenge_type": outcome.ChallengeType,
			}
		})
		return &LoginResult{ChallengeRequired: true}, nil
	}

	return e.completeLogin(ctx, auditEventLoginSuccess, MetricLoginSuccess, email, outcome, remember)
}

// VerifyTwoFactorLogin completes a challenged login with a 6-digit
// authenticator code.
func (e *Engine) VerifyTwoFactorLogin(ctx context.Context, email, code string, remember bool) (*LoginResult, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.TwoFactor.RequireOnLogin {
		return nil, ErrTwoFactorDisabled
	}
	if !isDigits(code, e.config.TwoFactor.LoginCodeDigits) {
		return nil, ErrInvalidCode
	}

	v, err, shared := e.inflight.Do(inflightKey("2fa-login", email, code), func() (any, error) {
		outcome, berr := e.backend.VerifyTwoFactorLogin(ctx, email, code)
		if berr != nil {
			e.metricInc(MetricTwoFactorLoginFailure)
			e.emitAudit(ctx, auditEventTwoFactorLogin, false, "", email, berr, nil)
			return nil, berr
		}
		return e.completeLogin(ctx, auditEventTwoFactorLogin, MetricTwoFactorLoginSuccess, email, outcome, remember)
	})
	if shared {
		e.metricInc(MetricLoginCoalesced)
	}
	if err != nil {
		return nil, err
	}
	return v.(*LoginResult), nil
}

// completeLogin persists the fresh outcome and resolves the landing route.
// Shared by password login, two-factor completion, invitation accept, and
// the implicit post-signup login.
func (e *Engine) completeLogin(
	ctx context.Context,
	eventType string,
	successMetric MetricID,
	email string,
	outcome *LoginOutcome,
	remember bool,
) (*LoginResult, error) {
	if outcome == nil || outcome.Principal == nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "empty_principal",
			}
		})
		return nil, ErrInvalidCredentials
	}

	if err := e.persistSession(ctx, outcome, remember); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, outcome.Principal.ID, email, err, func() map[string]string {
			return map[string]string{
				"reason": "session_write_failed",
			}
		})
		return nil, err
	}

	if remember && email != "" {
		// Prefill preference, best-effort.
		if err := e.sessions.SetRememberedEmail(ctx, email); err != nil {
			e.emitAudit(ctx, eventType, false, outcome.Principal.ID, email, err, func() map[string]string {
				return map[string]string{
					"reason": "remembered_email_write_failed",
				}
			})
		}
	}

	landing := e.DecideFor(outcome.Principal, "")
	e.metricInc(successMetric)
	e.emitAudit(ctx, eventType, true, outcome.Principal.ID, email, nil, func() map[string]string {
		return map[string]string{
			"landing": landing,
		}
	})

	return &LoginResult{
		Principal: outcome.Principal,
		Tokens:    outcome.Tokens,
		Landing:   landing,
	}, nil
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
