package portalauth

import (
	"context"
	"errors"
	"sync"

	"github.com/xpert786/portalauth/route"
)

// InvitationState is the client-side lifecycle state of an invitation flow.
type InvitationState string

const (
	// InviteLoading is the initial state while the token is being fetched.
	InviteLoading InvitationState = "loading"
	// InviteValid means the token can be accepted or declined.
	InviteValid InvitationState = "valid"
	// InviteExpired is terminal; only the login exit is offered.
	InviteExpired InvitationState = "expired"
	// InviteAlreadyAccepted is terminal; only the login exit is offered.
	InviteAlreadyAccepted InvitationState = "already_accepted"
	// InviteInvalid is terminal; only the login exit is offered.
	InviteInvalid InvitationState = "invalid"
	// InviteAccepted means the invitation was consumed and a session
	// created.
	InviteAccepted InvitationState = "accepted"
	// InviteDenied means the invitee declined; no session was produced.
	InviteDenied InvitationState = "denied"
)

// InvitationFlow drives a single invitation token from load through accept
// or decline. Terminal states expose no accept/deny actions, so a stale
// form can never double-submit against a dead token. A flow is safe for
// concurrent use but represents one token for one page lifetime.
type InvitationFlow struct {
	engine *Engine
	token  string

	mu         sync.Mutex
	state      InvitationState
	invitation *Invitation
}

// StartInvitation begins the flow for the token read from the URL. An
// absent token transitions straight to [InviteInvalid] with no network
// call; otherwise the token is fetched and the flow lands in the state the
// server reports.
func (e *Engine) StartInvitation(ctx context.Context, tokenValue string) *InvitationFlow {
	f := &InvitationFlow{
		engine: e,
		token:  tokenValue,
		state:  InviteLoading,
	}

	if tokenValue == "" {
		f.state = InviteInvalid
		e.metricInc(MetricInvitationDead)
		return f
	}

	inv, err := e.backend.FetchInvitation(ctx, tokenValue)
	e.metricInc(MetricInvitationFetched)
	if err != nil {
		// Backends return invitee data alongside dead-token errors so the
		// page can still greet the invitee by name.
		f.invitation = inv
		switch {
		case errors.Is(err, ErrExpiredToken):
			f.state = InviteExpired
		case errors.Is(err, ErrAlreadyAccepted):
			f.state = InviteAlreadyAccepted
		default:
			f.state = InviteInvalid
		}
		e.metricInc(MetricInvitationDead)
		e.emitAudit(ctx, auditEventInvitationFetch, false, "", "", err, func() map[string]string {
			return map[string]string{
				"state": string(f.state),
			}
		})
		return f
	}

	f.invitation = inv
	switch inv.Status {
	case InvitationPending:
		f.state = InviteValid
	case InvitationExpired:
		f.state = InviteExpired
		e.metricInc(MetricInvitationDead)
	case InvitationAccepted:
		f.state = InviteAlreadyAccepted
		e.metricInc(MetricInvitationDead)
	default:
		f.state = InviteInvalid
		e.metricInc(MetricInvitationDead)
	}

	e.emitAudit(ctx, auditEventInvitationFetch, f.state == InviteValid, "", inv.InviteeEmail, nil, func() map[string]string {
		return map[string]string{
			"state": string(f.state),
		}
	})
	return f
}

// State returns the flow's current state.
func (f *InvitationFlow) State() InvitationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Invitation returns the fetched invitation, if any. Dead tokens still
// carry invitee data for display.
func (f *InvitationFlow) Invitation() *Invitation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invitation
}

// CanRespond reports whether accept and decline actions are available.
func (f *InvitationFlow) CanRespond() bool {
	return f.State() == InviteValid
}

// ExitPath is the only navigation offered from terminal states.
func (f *InvitationFlow) ExitPath() string {
	return route.PathLogin
}

// Accept consumes the invitation, creating the account password and a fresh
// session, and resolves the landing route for the new principal. It is only
// valid from [InviteValid]; a concurrent or repeated accept surfaces
// [ErrAlreadyAccepted] rather than silently retrying.
func (f *InvitationFlow) Accept(ctx context.Context, pw, confirm, phone string) (*LoginResult, error) {
	f.mu.Lock()
	if f.state != InviteValid {
		state := f.state
		f.mu.Unlock()
		return nil, respondError(state)
	}
	f.mu.Unlock()

	result, err := f.engine.AcceptInvitation(ctx, AcceptInvitationInput{
		Token:           f.token,
		Password:        pw,
		PasswordConfirm: confirm,
		Phone:           phone,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyAccepted) {
			f.setState(InviteAlreadyAccepted)
		}
		return nil, err
	}

	f.setState(InviteAccepted)
	return result, nil
}

// Decline rejects the invitation. Terminal; no session is produced.
func (f *InvitationFlow) Decline(ctx context.Context) error {
	f.mu.Lock()
	if f.state != InviteValid {
		state := f.state
		f.mu.Unlock()
		return respondError(state)
	}
	inviteType := ""
	if f.invitation != nil {
		inviteType = f.invitation.Type
	}
	f.mu.Unlock()

	if err := f.engine.DeclineInvitation(ctx, f.token, inviteType); err != nil {
		return err
	}

	f.setState(InviteDenied)
	return nil
}

func (f *InvitationFlow) setState(s InvitationState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func respondError(state InvitationState) error {
	switch state {
	case InviteExpired:
		return ErrExpiredToken
	case InviteAlreadyAccepted, InviteAccepted:
		return ErrAlreadyAccepted
	case InviteDenied, InviteInvalid, InviteLoading:
		return ErrInvitationNotRespondable
	default:
		return ErrInvitationNotRespondable
	}
}

// AcceptInvitation exchanges an invitation token and new password for a
// session. Field-level failures surface as [FieldErrors] before any network
// call; a consumed token surfaces as [ErrAlreadyAccepted]. Identical
// duplicate submits are coalesced onto the in-flight exchange.
func (e *Engine) AcceptInvitation(ctx context.Context, in AcceptInvitationInput) (*LoginResult, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}
	if in.Token == "" {
		return nil, ErrInvalidToken
	}

	fieldErrs := newPasswordFieldErrors(in.Password, in.PasswordConfirm)
	if in.Phone != "" && !phonePattern.MatchString(in.Phone) {
		fieldErrs.Add("phone_number", "enter a valid phone number")
	}
	if fieldErrs.Any() {
		return nil, fieldErrs
	}

	v, err, _ := e.inflight.Do(inflightKey("invite-accept", in.Token, in.Password), func() (any, error) {
		outcome, berr := e.backend.AcceptInvitation(ctx, in)
		if berr != nil {
			e.emitAudit(ctx, auditEventInvitationAccept, false, "", "", berr, nil)
			return nil, berr
		}

		result, cerr := e.completeLogin(ctx, auditEventInvitationAccept, MetricInvitationAccepted, "", outcome, false)
		if cerr != nil {
			return nil, cerr
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*LoginResult), nil
}

// DeclineInvitation rejects the invitation server-side.
func (e *Engine) DeclineInvitation(ctx context.Context, tokenValue, inviteType string) error {
	if e == nil || e.backend == nil {
		return ErrEngineNotReady
	}
	if tokenValue == "" {
		return ErrInvalidToken
	}

	err := e.backend.DeclineInvitation(ctx, tokenValue, inviteType)
	if err == nil {
		e.metricInc(MetricInvitationDeclined)
	}
	e.emitAudit(ctx, auditEventInvitationDecline, err == nil, "", "", err, nil)
	return err
}
