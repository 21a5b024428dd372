package route

import "github.com/xpert786/portalauth/role"

// Application area paths. These are the only landing targets the portal
// routes to; collaborating screens hang off these prefixes.
const (
	PathLogin               = "/login"
	PathForcedReset         = "/auth/change-password"
	PathRoleSelection       = "/auth/select-role"
	PathSuperAdmin          = "/super-admin/dashboard"
	PathSubscription        = "/firm/subscription/setup"
	PathFirmAdmin           = "/firm/dashboard"
	PathPreparer            = "/preparer/dashboard"
	PathVerificationChooser = "/auth/verify"
	PathClientDashboard     = "/client/dashboard"
	PathClientFirstRun      = "/client/getting-started"
)

// Flags carries the principal state the decision table keys on, alongside
// the effective role.
type Flags struct {
	EmailVerified   bool
	PhoneVerified   bool
	Completed       bool
	HasSubscription bool
	ForcedReset     bool
}

// Decide maps a role resolution and principal flags to a landing path.
// The table is evaluated top-down and the first match wins.
func Decide(res role.Resolution, flags Flags) string {
	if flags.ForcedReset {
		return PathForcedReset
	}
	if res.Ambiguous {
		return PathRoleSelection
	}

	switch res.Effective {
	case role.SuperAdmin, role.SupportAdmin, role.BillingAdmin:
		return PathSuperAdmin
	case role.Admin:
		if !flags.HasSubscription {
			return PathSubscription
		}
		return PathFirmAdmin
	case role.TaxPreparer:
		return PathPreparer
	case role.Client, "":
		return decideClient(flags)
	default:
		// Unrecognized tags land on the client dashboard rather than a
		// dead end.
		return PathClientDashboard
	}
}

func decideClient(flags Flags) string {
	if !flags.EmailVerified && !flags.PhoneVerified {
		return PathVerificationChooser
	}
	if flags.Completed {
		return PathClientDashboard
	}
	return PathClientFirstRun
}
