package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/xpert786/portalauth/role"
)

// ErrRedisUnavailable wraps durable-scope backend failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNoSession is returned by mutating helpers when neither scope holds a
// session.
var ErrNoSession = errors.New("no active session")

// Persisted key schema. rememberedEmail is deliberately outside the session
// field set: it survives Clear because the remember-me email is a user
// preference, not session state.
const (
	keyAccessToken     = "accessToken"
	keyRefreshToken    = "refreshToken"
	keyIsLoggedIn      = "isLoggedIn"
	keyUserData        = "userData"
	keyUserType        = "userType"
	keyCustomRole      = "customRole"
	keyFirmsData       = "firmsData"
	keyImpersonation   = "impersonation"
	keyRememberedEmail = "rememberedEmail"
)

var sessionFields = []string{
	keyAccessToken,
	keyRefreshToken,
	keyIsLoggedIn,
	keyUserData,
	keyUserType,
	keyCustomRole,
	keyFirmsData,
	keyImpersonation,
}

// Store persists the session under a caller-selected durability policy. The
// durable scope is a Redis hash shared across tabs; the ephemeral scope is
// owned by this Store instance and dies with it. A Store is safe for
// concurrent use.
type Store struct {
	rdb    *redis.Client
	prefix string
	realm  string

	mu  sync.Mutex
	eph map[string]string
}

// NewStore creates a Store over the given Redis client. prefix namespaces
// the durable hash key; realm isolates independent portal installations
// sharing one Redis.
func NewStore(rdb *redis.Client, prefix, realm string) *Store {
	if prefix == "" {
		prefix = "ps"
	}
	if realm == "" {
		realm = "default"
	}
	return &Store{
		rdb:    rdb,
		prefix: prefix,
		realm:  realm,
		eph:    make(map[string]string),
	}
}

func (s *Store) durableKey() string {
	return s.prefix + ":" + s.realm
}

// Write persists the token pair and principal snapshot into the scope
// selected by remember, and deletes any stale copy of the session fields
// from the other scope. The previous content of the target scope is replaced
// wholesale; callers clear both scopes first on a fresh login so leftover
// keys from the prior principal can never leak forward.
func (s *Store) Write(ctx context.Context, tokens Tokens, p *Principal, remember bool) error {
	if p == nil {
		return errors.New("nil principal")
	}

	fields, err := principalFields(tokens, p)
	if err != nil {
		return err
	}

	if remember {
		s.clearEphemeral()
		pipe := s.rdb.TxPipeline()
		pipe.HDel(ctx, s.durableKey(), sessionFields...)
		pipe.HSet(ctx, s.durableKey(), fields)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return nil
	}

	if err := s.rdb.HDel(ctx, s.durableKey(), sessionFields...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range sessionFields {
		delete(s.eph, f)
	}
	for k, v := range fields {
		s.eph[k] = v
	}
	return nil
}

// Read returns the persisted session, preferring the durable scope. The
// first scope holding a non-empty principal wins and the snapshot is built
// from that scope alone; partial data is never merged across scopes. A nil
// snapshot with a nil error means no session exists.
func (s *Store) Read(ctx context.Context) (*Snapshot, error) {
	vals, err := s.rdb.HMGet(ctx, s.durableKey(), sessionFields...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	durable := make(map[string]string, len(sessionFields))
	for i, f := range sessionFields {
		if str, ok := vals[i].(string); ok {
			durable[f] = str
		}
	}
	if durable[keyUserData] != "" {
		return buildSnapshot(durable, true)
	}

	s.mu.Lock()
	eph := make(map[string]string, len(s.eph))
	for k, v := range s.eph {
		eph[k] = v
	}
	s.mu.Unlock()

	if eph[keyUserData] != "" {
		return buildSnapshot(eph, false)
	}
	return nil, nil
}

func buildSnapshot(fields map[string]string, durable bool) (*Snapshot, error) {
	var p Principal
	if err := json.Unmarshal([]byte(fields[keyUserData]), &p); err != nil {
		return nil, fmt.Errorf("corrupt principal snapshot: %w", err)
	}

	snap := &Snapshot{
		Tokens: Tokens{
			Access:  fields[keyAccessToken],
			Refresh: fields[keyRefreshToken],
		},
		Principal:     &p,
		EffectiveRole: fields[keyUserType],
		Impersonation: fields[keyImpersonation],
		Durable:       durable,
	}
	if raw := fields[keyCustomRole]; raw != "" {
		var cr role.CustomRole
		if err := json.Unmarshal([]byte(raw), &cr); err == nil {
			snap.CustomRole = &cr
		}
	}
	if raw := fields[keyFirmsData]; raw != "" {
		snap.Firms = json.RawMessage(raw)
	}
	return snap, nil
}

// Clear removes tokens, principal, role, and all per-session derived markers
// (impersonation included) from both scopes. It is idempotent and leaves the
// remembered email untouched.
func (s *Store) Clear(ctx context.Context) error {
	s.clearEphemeral()
	if err := s.rdb.HDel(ctx, s.durableKey(), sessionFields...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) clearEphemeral() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range sessionFields {
		delete(s.eph, f)
	}
}

// IsAuthenticated reports whether a principal with an access token is
// persisted. Token expiry is not checked here; the backend rejects stale
// tokens on the next call.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	snap, err := s.Read(ctx)
	if err != nil || snap == nil {
		return false
	}
	return snap.Principal != nil && snap.Tokens.Access != ""
}

// UpdatePrincipal re-reads the persisted principal, applies mutate, and
// writes it back into the scope that currently holds the session. Used by
// verification and two-factor flows that flip principal flags in place.
// Only the core fields are rewritten; derived keys (firmsData,
// impersonation) belong to Clear and survive a flag flip.
func (s *Store) UpdatePrincipal(ctx context.Context, mutate func(*Principal)) error {
	snap, err := s.Read(ctx)
	if err != nil {
		return err
	}
	if snap == nil || snap.Principal == nil {
		return ErrNoSession
	}

	mutate(snap.Principal)

	fields, err := principalFields(snap.Tokens, snap.Principal)
	if err != nil {
		return err
	}
	stale := staleCoreKeys(fields)

	if snap.Durable {
		pipe := s.rdb.TxPipeline()
		if len(stale) > 0 {
			pipe.HDel(ctx, s.durableKey(), stale...)
		}
		pipe.HSet(ctx, s.durableKey(), fields)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range stale {
		delete(s.eph, k)
	}
	for k, v := range fields {
		s.eph[k] = v
	}
	return nil
}

// principalFields builds the core session fields for a token pair and
// principal. Derived keys are never part of the result.
func principalFields(tokens Tokens, p *Principal) (map[string]string, error) {
	userData, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		keyAccessToken:  tokens.Access,
		keyRefreshToken: tokens.Refresh,
		keyIsLoggedIn:   "true",
		keyUserData:     string(userData),
	}

	res := role.Resolve(p.Roles, p.CustomRole)
	if !res.Ambiguous {
		fields[keyUserType] = res.Effective
	}
	if p.CustomRole != nil {
		customRole, err := json.Marshal(p.CustomRole)
		if err != nil {
			return nil, err
		}
		fields[keyCustomRole] = string(customRole)
	}
	return fields, nil
}

// staleCoreKeys lists the optional core keys absent from fields, so a
// mutation that dropped the custom role or made the tags ambiguous does not
// leave a stale value behind.
func staleCoreKeys(fields map[string]string) []string {
	var stale []string
	for _, k := range []string{keyUserType, keyCustomRole} {
		if _, ok := fields[k]; !ok {
			stale = append(stale, k)
		}
	}
	return stale
}

// SetFirms stores the multi-firm account list alongside the session in the
// scope that currently holds it.
func (s *Store) SetFirms(ctx context.Context, firms json.RawMessage) error {
	return s.setDerived(ctx, keyFirmsData, string(firms))
}

// SetImpersonation records a super-admin impersonation marker. The marker is
// a session-scoped derived key and is wiped by Clear.
func (s *Store) SetImpersonation(ctx context.Context, marker string) error {
	return s.setDerived(ctx, keyImpersonation, marker)
}

func (s *Store) setDerived(ctx context.Context, field, value string) error {
	snap, err := s.Read(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return ErrNoSession
	}

	if snap.Durable {
		if err := s.rdb.HSet(ctx, s.durableKey(), field, value).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return nil
	}

	s.mu.Lock()
	s.eph[field] = value
	s.mu.Unlock()
	return nil
}

// SetRememberedEmail persists the login-form prefill email. It lives in the
// durable scope regardless of the session's durability and survives Clear.
func (s *Store) SetRememberedEmail(ctx context.Context, email string) error {
	if email == "" {
		if err := s.rdb.HDel(ctx, s.durableKey(), keyRememberedEmail).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return nil
	}
	if err := s.rdb.HSet(ctx, s.durableKey(), keyRememberedEmail, email).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RememberedEmail returns the stored prefill email, or "" when none is set.
func (s *Store) RememberedEmail(ctx context.Context) (string, error) {
	email, err := s.rdb.HGet(ctx, s.durableKey(), keyRememberedEmail).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return email, nil
}
