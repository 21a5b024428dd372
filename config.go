package portalauth

import (
	"errors"
	"time"
)

// Config defines engine behavior. Configure once before Build and treat as
// immutable afterwards.
type Config struct {
	TwoFactor TwoFactorConfig
	Session   SessionConfig
	Backend   BackendConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// TwoFactorConfig controls the login-time challenge and code formats.
//
// RequireOnLogin gates whether a backend-signalled challenge is ever
// surfaced. The product currently ships with it off while keeping the
// enrollment flow live; the flag exists so re-enabling is a config change,
// not a code change.
type TwoFactorConfig struct {
	RequireOnLogin bool
	// LoginCodeDigits is the authenticator code length (6). OTPDigits is
	// the older email/phone verification code length (4). They map to
	// different backend validators and must not be unified.
	LoginCodeDigits int
	OTPDigits       int
}

// SessionConfig namespaces the durable scope.
type SessionConfig struct {
	RedisPrefix string
	Realm       string
}

// BackendConfig points the httpapi adapter at the portal API.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		TwoFactor: TwoFactorConfig{
			RequireOnLogin:  false,
			LoginCodeDigits: 6,
			OTPDigits:       4,
		},
		Session: SessionConfig{
			RedisPrefix: "ps",
			Realm:       "default",
		},
		Backend: BackendConfig{
			Timeout: 15 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.TwoFactor.LoginCodeDigits != 6 {
		return errors.New("two-factor login codes are 6 digits")
	}
	if c.TwoFactor.OTPDigits != 4 {
		return errors.New("email/phone OTP codes are 4 digits")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix required")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}

func cloneConfig(c Config) Config {
	// All fields are value types; a shallow copy is a deep copy.
	return c
}
