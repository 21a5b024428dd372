package portalauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginChallenge     = "login_challenge_required"
	auditEventTwoFactorLogin     = "two_factor_login"
	auditEventTwoFactorSetup     = "two_factor_setup"
	auditEventTwoFactorConfirm   = "two_factor_setup_confirm"
	auditEventOTPVerify          = "otp_verify"
	auditEventInvitationFetch    = "invitation_fetch"
	auditEventInvitationAccept   = "invitation_accept"
	auditEventInvitationDecline  = "invitation_decline"
	auditEventRegister           = "register"
	auditEventRegisterFallback   = "register_auto_login_fallback"
	auditEventPasswordForgot     = "password_forgot"
	auditEventPasswordReset      = "password_reset"
	auditEventPasswordForced     = "password_force_change"
	auditEventLogout             = "logout"
	auditEventSessionExpired     = "session_expired"
	auditEventNavigationDecision = "navigation_decision"
	auditEventNavigationDegraded = "navigation_context_degraded"
)

type auditErrorCode string

const (
	auditErrInvalidCredentials auditErrorCode = "invalid_credentials"
	auditErrInvalidCode        auditErrorCode = "invalid_code"
	auditErrChallengeExpired   auditErrorCode = "challenge_expired"
	auditErrChallengeDisabled  auditErrorCode = "challenge_disabled"
	auditErrInvalidToken       auditErrorCode = "invalid_token"
	auditErrExpiredToken       auditErrorCode = "expired_token"
	auditErrAlreadyAccepted    auditErrorCode = "already_accepted"
	auditErrInvalidOtp         auditErrorCode = "invalid_otp"
	auditErrInvalidTemp        auditErrorCode = "invalid_temp_password"
	auditErrValidation         auditErrorCode = "validation"
	auditErrNetwork            auditErrorCode = "network"
	auditErrSessionExpired     auditErrorCode = "session_expired"
	auditErrNotAuthenticated   auditErrorCode = "not_authenticated"
	auditErrInternal           auditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		Email:       email,
		IP:          clientIPFromContext(ctx),
		UserAgent:   userAgentFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := codeForAuditError(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func codeForAuditError(err error) auditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidCode):
		return auditErrInvalidCode
	case errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeExpired
	case errors.Is(err, ErrTwoFactorDisabled):
		return auditErrChallengeDisabled
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrExpiredToken):
		return auditErrExpiredToken
	case errors.Is(err, ErrAlreadyAccepted):
		return auditErrAlreadyAccepted
	case errors.Is(err, ErrInvalidOtp):
		return auditErrInvalidOtp
	case errors.Is(err, ErrInvalidTempPassword):
		return auditErrInvalidTemp
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrNetwork):
		return auditErrNetwork
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	default:
		return auditErrInternal
	}
}
