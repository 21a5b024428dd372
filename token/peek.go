// Package token inspects bearer tokens issued by the portal backend.
//
// The backend is the sole verifier of token signatures; this package only
// decodes the claims the portal needs for display and telemetry (subject,
// email, expiry). [Peek] therefore parses without verification and its output
// must never gate an authorization decision.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when the raw token is not a decodable JWT.
var ErrMalformed = errors.New("malformed bearer token")

// Claims is the subset of access-token claims the portal reads.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

type rawClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Peek decodes raw without verifying its signature and returns the claims
// the portal displays. Expiry here is informational; the backend rejects
// stale tokens on the next call regardless.
func Peek(raw string) (*Claims, error) {
	var rc rawClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &rc); err != nil {
		return nil, ErrMalformed
	}

	c := &Claims{
		Subject: rc.Subject,
		Email:   rc.Email,
	}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	return c, nil
}
