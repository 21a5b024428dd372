package role

// Role tags as issued by the backend. Staff and Firm are legacy source tags
// that alias onto the routing tags TaxPreparer and Admin.
const (
	Client       = "client"
	Staff        = "staff"
	TaxPreparer  = "tax_preparer"
	Firm         = "firm"
	Admin        = "admin"
	SuperAdmin   = "super_admin"
	SupportAdmin = "support_admin"
	BillingAdmin = "billing_admin"
)

// CustomRole is the fine-grained permission override attached to some
// tax-preparer accounts. Its presence forces tax_preparer routing because
// custom permission sets are only defined for preparer-shaped dashboards.
type CustomRole struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

// Resolution is the outcome of resolving a principal's role tags. When
// Ambiguous is true, Effective is empty and Roles carries the full tag list
// for the role selection screen.
type Resolution struct {
	Effective string
	Ambiguous bool
	Roles     []string
}

// Resolve computes the effective routing role from the raw role tags and the
// optional custom role. The result is deterministic: identical inputs in any
// tag order produce the same Resolution.
func Resolve(roles []string, custom *CustomRole) Resolution {
	tags := normalize(roles)

	if custom != nil && contains(tags, TaxPreparer) {
		return Resolution{Effective: TaxPreparer, Roles: tags}
	}

	switch len(tags) {
	case 0:
		return Resolution{Effective: Client}
	case 1:
		return Resolution{Effective: Alias(tags[0]), Roles: tags}
	default:
		return Resolution{Ambiguous: true, Roles: tags}
	}
}

// Alias maps a legacy source tag onto its routing tag. Unknown tags pass
// through unchanged.
func Alias(tag string) string {
	switch tag {
	case Staff:
		return TaxPreparer
	case Firm:
		return Admin
	default:
		return tag
	}
}

// normalize drops empty tags and exact duplicates while preserving order,
// so a backend payload like ["client", "", "client"] does not read as
// ambiguous.
func normalize(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}

	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		if contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func contains(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
