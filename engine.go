package portalauth

import (
	"context"
	"log"

	"golang.org/x/sync/singleflight"

	"github.com/xpert786/portalauth/route"
	"github.com/xpert786/portalauth/session"
)

// Engine is the identity core every portal surface calls: it exchanges
// credentials and invitation tokens for sessions, persists them under the
// caller-selected durability policy, and resolves landing routes. Engine
// methods are safe for concurrent use after [Builder.Build].
type Engine struct {
	config   Config
	backend  Backend
	sessions *session.Store
	inflight singleflight.Group
	audit    *auditDispatcher
	metrics  *Metrics
}

// Close drains the audit dispatcher. The Engine must not be used afterward.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// back-pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// IsAuthenticated reports whether a session with an access token is
// persisted. Token expiry is a backend concern discovered on the next call.
func (e *Engine) IsAuthenticated(ctx context.Context) bool {
	if e == nil || e.sessions == nil {
		return false
	}
	return e.sessions.IsAuthenticated(ctx)
}

// CurrentPrincipal returns the cached principal snapshot, or
// [ErrNotAuthenticated] when no session exists.
func (e *Engine) CurrentPrincipal(ctx context.Context) (*Principal, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	snap, err := e.sessions.Read(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.Principal == nil {
		return nil, ErrNotAuthenticated
	}
	return snap.Principal, nil
}

// RememberedEmail returns the login-form prefill address, or "".
func (e *Engine) RememberedEmail(ctx context.Context) string {
	if e == nil || e.sessions == nil {
		return ""
	}

	email, err := e.sessions.RememberedEmail(ctx)
	if err != nil {
		return ""
	}
	return email
}

// Logout revokes the session with the backend on a best-effort basis and
// always clears both storage scopes, impersonation markers included.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	snap, err := e.sessions.Read(ctx)
	if err == nil && snap != nil && snap.Tokens.Access != "" {
		// Server-side revocation must not block the local clear.
		if berr := e.backend.Logout(ctx, snap.Tokens.Access); berr != nil {
			log.Print("portalauth: backend logout failed")
		}
	}

	clearErr := e.sessions.Clear(ctx)
	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionCleared)

	var principalID string
	if snap != nil && snap.Principal != nil {
		principalID = snap.Principal.ID
	}
	e.emitAudit(ctx, auditEventLogout, clearErr == nil, principalID, "", clearErr, nil)

	return clearErr
}

// HandleSessionExpired is the reaction path for a backend-rejected token:
// clear the session store and steer the user to login.
func (e *Engine) HandleSessionExpired(ctx context.Context) string {
	if e != nil && e.sessions != nil {
		if err := e.sessions.Clear(ctx); err != nil {
			log.Print("portalauth: session clear failed after expiry")
		}
	}
	e.metricInc(MetricSessionExpired)
	e.emitAudit(ctx, auditEventSessionExpired, true, "", "", ErrSessionExpired, nil)
	return route.PathLogin
}

// persistSession replaces whatever session existed with the fresh outcome:
// both scopes are cleared first so the previous principal's keys can never
// leak into the next session, then the selected scope is written.
func (e *Engine) persistSession(ctx context.Context, outcome *LoginOutcome, remember bool) error {
	if err := e.sessions.Clear(ctx); err != nil {
		return err
	}
	if err := e.sessions.Write(ctx, outcome.Tokens, outcome.Principal, remember); err != nil {
		return err
	}
	e.metricInc(MetricSessionWritten)
	return nil
}
