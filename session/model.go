package session

import (
	"encoding/json"

	"github.com/xpert786/portalauth/role"
)

// Principal is the authenticated identity snapshot held by the portal. It is
// created on a successful credential exchange, mutated by verification and
// two-factor flows, superseded (not merged) on each fresh login, and cleared
// on logout.
type Principal struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone_number,omitempty"`
	FirstName        string           `json:"first_name,omitempty"`
	LastName         string           `json:"last_name,omitempty"`
	Roles            []string         `json:"role"`
	CustomRole       *role.CustomRole `json:"custom_role,omitempty"`
	EmailVerified    bool             `json:"is_email_verified"`
	PhoneVerified    bool             `json:"is_phone_verified"`
	Completed        bool             `json:"is_completed"`
	SubscriptionPlan string           `json:"subscription_plan,omitempty"`
	TwoFactorEnabled bool             `json:"two_factor_authentication"`
	ForcedReset      bool             `json:"force_password_reset,omitempty"`
}

// Tokens is the bearer token pair issued at credential exchange. Refresh
// rotation is handled by the transport collaborator, not this package.
type Tokens struct {
	Access  string `json:"accessToken"`
	Refresh string `json:"refreshToken"`
}

// Snapshot is one scope's complete view of the persisted session. Read
// returns it wholly from a single scope.
type Snapshot struct {
	Tokens        Tokens
	Principal     *Principal
	EffectiveRole string
	CustomRole    *role.CustomRole
	Firms         json.RawMessage
	Impersonation string
	Durable       bool
}
