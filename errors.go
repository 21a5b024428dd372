package portalauth

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when the backend rejects an email
	// and password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidCode is returned for a malformed or wrong two-factor code.
	ErrInvalidCode = errors.New("invalid two-factor code")
	// ErrChallengeExpired is returned when a two-factor login challenge has
	// lapsed and the user must log in again.
	ErrChallengeExpired = errors.New("two-factor challenge expired")
	// ErrTwoFactorDisabled is returned when a login-time challenge is
	// signalled while the require-on-login flag is off.
	ErrTwoFactorDisabled = errors.New("two-factor login challenge disabled")
	// ErrTwoFactorAlreadyEnabled short-circuits enrollment for a principal
	// that already has two-factor configured.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	// ErrInvalidToken is returned for an unknown invitation token.
	ErrInvalidToken = errors.New("invalid invitation token")
	// ErrExpiredToken is returned for an invitation past its expiry.
	ErrExpiredToken = errors.New("invitation token expired")
	// ErrAlreadyAccepted is returned when an invitation was consumed by an
	// earlier accept, including a rapid double-submit.
	ErrAlreadyAccepted = errors.New("invitation already accepted")
	// ErrInvitationNotRespondable is returned when accept or decline is
	// attempted from a terminal invitation state.
	ErrInvitationNotRespondable = errors.New("invitation not in a respondable state")
	// ErrInvalidOtp is returned for a wrong password-recovery OTP.
	ErrInvalidOtp = errors.New("invalid otp")
	// ErrInvalidTempPassword is returned for a wrong temporary password
	// during a forced change.
	ErrInvalidTempPassword = errors.New("invalid temporary password")
	// ErrNetwork wraps transport and timeout failures reaching the backend.
	ErrNetwork = errors.New("network error")
	// ErrSessionExpired is surfaced when the backend rejects a previously
	// valid bearer token. The engine reacts by clearing the session store.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthenticated is returned by operations that need a persisted
	// session when none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrEngineNotReady is returned when an Engine is used before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrValidation is the sentinel matched by errors.Is for any [FieldErrors]
// value, so callers can branch on "local validation failed" without caring
// which fields are involved.
var ErrValidation = errors.New("validation failed")

// FieldErrors maps a form field name to its failure messages. It is the
// single internal shape for field-scoped errors: local pre-network checks
// produce it directly and the httpapi adapter normalizes both backend error
// forms (structured map or semicolon-delimited string) into it.
type FieldErrors map[string][]string

// Add appends a message to the named field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Any reports whether at least one field failed.
func (f FieldErrors) Any() bool {
	return len(f) > 0
}

// Error renders the field map deterministically for logs and banners.
func (f FieldErrors) Error() string {
	if len(f) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(field)
		b.WriteString(": ")
		b.WriteString(strings.Join(f[field], ", "))
	}
	return b.String()
}

// Is makes errors.Is(err, ErrValidation) match any FieldErrors value.
func (f FieldErrors) Is(target error) bool {
	return target == ErrValidation
}
