package portalauth

import (
	"context"
	"errors"
	"log"
)

// SetupTwoFactor starts authenticator enrollment for the current session
// and returns the provisioning secret and QR payload. When the backend
// reports two-factor already enabled, the result short-circuits to success
// with AlreadyEnabled set instead of an error. The challenge is ephemeral
// and never persisted to the session store.
func (e *Engine) SetupTwoFactor(ctx context.Context) (*TwoFactorSetup, error) {
	access, err := e.currentAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	setup, err := e.backend.SetupTwoFactor(ctx, access)
	if err != nil {
		if errors.Is(err, ErrTwoFactorAlreadyEnabled) {
			e.emitAudit(ctx, auditEventTwoFactorSetup, true, "", "", nil, func() map[string]string {
				return map[string]string{
					"already_enabled": "true",
				}
			})
			return &TwoFactorSetup{AlreadyEnabled: true}, nil
		}
		e.emitAudit(ctx, auditEventTwoFactorSetup, false, "", "", err, nil)
		return nil, err
	}

	e.metricInc(MetricTwoFactorSetupRequested)
	e.emitAudit(ctx, auditEventTwoFactorSetup, true, "", "", nil, nil)
	return setup, nil
}

// VerifyTwoFactorSetup completes enrollment with a 6-digit authenticator
// code and flips the cached principal's two-factor flag.
func (e *Engine) VerifyTwoFactorSetup(ctx context.Context, code, secret string) error {
	access, err := e.currentAccessToken(ctx)
	if err != nil {
		return err
	}
	if !isDigits(code, e.config.TwoFactor.LoginCodeDigits) {
		return ErrInvalidCode
	}

	if err := e.backend.VerifyTwoFactorSetup(ctx, access, code, secret); err != nil {
		e.emitAudit(ctx, auditEventTwoFactorConfirm, false, "", "", err, nil)
		return err
	}

	if err := e.sessions.UpdatePrincipal(ctx, func(p *Principal) {
		p.TwoFactorEnabled = true
	}); err != nil {
		log.Print("portalauth: principal update failed after two-factor enrollment")
	}

	e.metricInc(MetricTwoFactorSetupConfirmed)
	e.emitAudit(ctx, auditEventTwoFactorConfirm, true, "", "", nil, nil)
	return nil
}

// VerifyEmailOTP confirms the 4-digit email verification code and flips
// the cached principal's email-verified flag. Email and phone OTPs are
// 4 digits, distinct from the 6-digit authenticator codes; the two formats
// map to different backend validators.
func (e *Engine) VerifyEmailOTP(ctx context.Context, code string) error {
	return e.verifyContactOTP(ctx, code, "email", e.backend.VerifyEmailOTP, func(p *Principal) {
		p.EmailVerified = true
	})
}

// VerifyPhoneOTP confirms the 4-digit SMS verification code and flips the
// cached principal's phone-verified flag.
func (e *Engine) VerifyPhoneOTP(ctx context.Context, code string) error {
	return e.verifyContactOTP(ctx, code, "phone", e.backend.VerifyPhoneOTP, func(p *Principal) {
		p.PhoneVerified = true
	})
}

func (e *Engine) verifyContactOTP(
	ctx context.Context,
	code string,
	channel string,
	verify func(ctx context.Context, accessToken, code string) error,
	mutate func(*Principal),
) error {
	access, err := e.currentAccessToken(ctx)
	if err != nil {
		return err
	}
	if !isDigits(code, e.config.TwoFactor.OTPDigits) {
		e.metricInc(MetricOTPVerifyFailure)
		return ErrInvalidOtp
	}

	if err := verify(ctx, access, code); err != nil {
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPVerify, false, "", "", err, func() map[string]string {
			return map[string]string{
				"channel": channel,
			}
		})
		return err
	}

	if err := e.sessions.UpdatePrincipal(ctx, mutate); err != nil {
		log.Print("portalauth: principal update failed after OTP verification")
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerify, true, "", "", nil, func() map[string]string {
		return map[string]string{
			"channel": channel,
		}
	})
	return nil
}

func (e *Engine) currentAccessToken(ctx context.Context) (string, error) {
	if e == nil || e.sessions == nil || e.backend == nil {
		return "", ErrEngineNotReady
	}

	snap, err := e.sessions.Read(ctx)
	if err != nil {
		return "", err
	}
	if snap == nil || snap.Tokens.Access == "" {
		return "", ErrNotAuthenticated
	}
	return snap.Tokens.Access, nil
}
