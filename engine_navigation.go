package portalauth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/xpert786/portalauth/role"
	"github.com/xpert786/portalauth/route"
)

// DecideFor maps a principal straight through the role resolver and the
// decision table. A non-empty returnTo is honored verbatim before any role
// logic runs. Used at every entry point that already holds a fresh
// principal (post-login, post-invite, post-signup).
func (e *Engine) DecideFor(p *Principal, returnTo string) string {
	if returnTo != "" {
		return returnTo
	}
	if p == nil {
		return route.PathLogin
	}

	start := time.Now()
	res := role.Resolve(p.Roles, p.CustomRole)
	target := route.Decide(res, flagsFor(p))
	if e != nil && e.metrics != nil && e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricDecideLatency, time.Since(start))
	}
	e.metricInc(MetricNavigationDecision)
	return target
}

// ResolveLanding is the root-path entry point. It re-fetches the server's
// current role context rather than trusting the cached effective role,
// because a session can outlive a role change performed elsewhere. When the
// re-fetch fails it degrades to the cached principal instead of blocking
// navigation; when the backend rejects the token it clears the session and
// lands on login.
func (e *Engine) ResolveLanding(ctx context.Context, returnTo string) (string, error) {
	if e == nil || e.sessions == nil {
		return route.PathLogin, ErrEngineNotReady
	}
	if returnTo != "" {
		return returnTo, nil
	}

	snap, err := e.sessions.Read(ctx)
	if err != nil {
		return route.PathLogin, err
	}
	if snap == nil || snap.Principal == nil || snap.Tokens.Access == "" {
		return route.PathLogin, nil
	}

	p := snap.Principal
	contexts, cerr := e.backend.AvailableContexts(ctx, snap.Tokens.Access)
	switch {
	case cerr == nil && contexts != nil:
		// Server truth supersedes the cached tags; persist the correction
		// so guards see the same roles this decision used.
		p.Roles = contexts.Roles
		p.CustomRole = contexts.CustomRole
		if uerr := e.sessions.UpdatePrincipal(ctx, func(stored *Principal) {
			stored.Roles = contexts.Roles
			stored.CustomRole = contexts.CustomRole
		}); uerr != nil {
			e.emitAudit(ctx, auditEventNavigationDegraded, false, p.ID, p.Email, uerr, nil)
		}
		if contexts.Firms != nil {
			if ferr := e.sessions.SetFirms(ctx, contexts.Firms); ferr != nil {
				e.emitAudit(ctx, auditEventNavigationDegraded, false, p.ID, p.Email, ferr, nil)
			}
		}
	case errors.Is(cerr, ErrSessionExpired):
		return e.HandleSessionExpired(ctx), nil
	default:
		e.metricInc(MetricNavigationDegraded)
		e.emitAudit(ctx, auditEventNavigationDegraded, false, p.ID, p.Email, cerr, nil)
	}

	target := e.DecideFor(p, "")
	e.emitAudit(ctx, auditEventNavigationDecision, true, p.ID, p.Email, nil, func() map[string]string {
		return map[string]string{
			"target":    target,
			"ambiguous": strconv.FormatBool(role.Resolve(p.Roles, p.CustomRole).Ambiguous),
		}
	})
	return target, nil
}

func flagsFor(p *Principal) route.Flags {
	return route.Flags{
		EmailVerified:   p.EmailVerified,
		PhoneVerified:   p.PhoneVerified,
		Completed:       p.Completed,
		HasSubscription: p.SubscriptionPlan != "",
		ForcedReset:     p.ForcedReset,
	}
}
