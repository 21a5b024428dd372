package portalauth

import (
	"context"

	"github.com/xpert786/portalauth/password"
)

// ForgotPassword asks the backend to send a recovery OTP to the given
// address.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if e == nil || e.backend == nil {
		return ErrEngineNotReady
	}
	if email == "" || !emailPattern.MatchString(email) {
		fieldErrs := FieldErrors{}
		fieldErrs.Add("email", "enter a valid email address")
		return fieldErrs
	}

	err := e.backend.ForgotPassword(ctx, email)
	e.emitAudit(ctx, auditEventPasswordForgot, err == nil, "", email, err, nil)
	return err
}

// ResetPassword completes a self-service recovery with a 4-digit OTP and a
// new password. Policy violations surface as [FieldErrors] before any
// network call; a wrong OTP surfaces as [ErrInvalidOtp].
func (e *Engine) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if e == nil || e.backend == nil {
		return ErrEngineNotReady
	}

	fieldErrs := newPasswordFieldErrors(in.Password, in.PasswordConfirm)
	if in.Email == "" || !emailPattern.MatchString(in.Email) {
		fieldErrs.Add("email", "enter a valid email address")
	}
	if !isDigits(in.Otp, e.config.TwoFactor.OTPDigits) {
		fieldErrs.Add("otp", "enter the 4-digit code")
	}
	if fieldErrs.Any() {
		e.metricInc(MetricPasswordResetFailure)
		return fieldErrs
	}

	if err := e.backend.ResetPassword(ctx, in); err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordReset, false, "", in.Email, err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordReset, true, "", in.Email, nil, nil)
	return nil
}

// ForceChangePassword completes an admin-initiated reset where a temporary
// password stands in for the OTP. A wrong temporary password surfaces as
// [ErrInvalidTempPassword].
func (e *Engine) ForceChangePassword(ctx context.Context, in ForceChangePasswordInput) error {
	if e == nil || e.backend == nil {
		return ErrEngineNotReady
	}

	fieldErrs := newPasswordFieldErrors(in.Password, in.PasswordConfirm)
	if in.Email == "" || !emailPattern.MatchString(in.Email) {
		fieldErrs.Add("email", "enter a valid email address")
	}
	if in.TempPassword == "" {
		fieldErrs.Add("temp_password", "temporary password is required")
	}
	if fieldErrs.Any() {
		e.metricInc(MetricPasswordForceChangeFailure)
		return fieldErrs
	}

	if err := e.backend.ForceChangePassword(ctx, in); err != nil {
		e.metricInc(MetricPasswordForceChangeFailure)
		e.emitAudit(ctx, auditEventPasswordForced, false, "", in.Email, err, nil)
		return err
	}

	e.metricInc(MetricPasswordForceChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordForced, true, "", in.Email, nil, nil)
	return nil
}

// newPasswordFieldErrors applies the shared policy predicate to a new
// password and its confirmation. Every flow that collects a new password
// funnels through here.
func newPasswordFieldErrors(pw, confirm string) FieldErrors {
	fieldErrs := FieldErrors{}
	for _, msg := range password.Check(pw) {
		fieldErrs.Add("password", msg)
	}
	if !password.Match(pw, confirm) {
		fieldErrs.Add("confirm_password", password.MsgNoMatch)
	}
	return fieldErrs
}
