package portalauth

import (
	"context"
	"log"
	"regexp"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\-\s()]{6,19}$`)

// RegisterClient performs the two-step client signup: a raw signup followed
// by an implicit login. When the signup succeeds but the automatic exchange
// fails, the result points the caller at the manual login screen with the
// email pre-filled rather than surfacing an error page.
func (e *Engine) RegisterClient(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}

	if fieldErrs := validateRegisterInput(in); fieldErrs.Any() {
		return nil, fieldErrs
	}

	if err := e.backend.Register(ctx, in); err != nil {
		e.emitAudit(ctx, auditEventRegister, false, "", in.Email, err, nil)
		return nil, err
	}
	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, true, "", in.Email, nil, nil)

	login, err := e.Login(ctx, in.Email, in.Password, false)
	if err != nil {
		// The account exists; dropping the user on an error page here
		// would strand them. Fall back to manual login with the email
		// pre-filled.
		if serr := e.sessions.SetRememberedEmail(ctx, in.Email); serr != nil {
			log.Print("portalauth: remembered email write failed after signup")
		}
		e.metricInc(MetricRegisterAutoLoginFallback)
		e.emitAudit(ctx, auditEventRegisterFallback, true, "", in.Email, err, nil)
		return &RegisterResult{
			ManualLoginEmail: in.Email,
		}, nil
	}

	return &RegisterResult{
		LoggedIn: true,
		Login:    login,
	}, nil
}

func validateRegisterInput(in RegisterInput) FieldErrors {
	fieldErrs := newPasswordFieldErrors(in.Password, in.PasswordConfirm)
	if in.FirstName == "" {
		fieldErrs.Add("first_name", "first name is required")
	}
	if in.LastName == "" {
		fieldErrs.Add("last_name", "last name is required")
	}
	if in.Email == "" {
		fieldErrs.Add("email", "email is required")
	} else if !emailPattern.MatchString(in.Email) {
		fieldErrs.Add("email", "enter a valid email address")
	}
	if in.Phone != "" && !phonePattern.MatchString(in.Phone) {
		fieldErrs.Add("phone_number", "enter a valid phone number")
	}
	return fieldErrs
}
