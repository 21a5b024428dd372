// Package session provides durability-aware persistence for the portal's
// tokens and principal snapshot.
//
// # Dual-lifetime scopes
//
// The [Store] writes to exactly one of two scopes: the durable scope
// (Redis-backed, survives restarts, shared read-last-write-wins across tabs)
// when remember-me is on, or the ephemeral scope (in-process, dies with the
// owning Store) otherwise. Writing to one scope actively deletes the stale
// copy of the same keys from the other, so a remembered session can never
// resurface after a non-remembered login. Reads prefer the durable scope and
// never merge partial data across scopes.
//
// # Architecture boundaries
//
// This package owns the key schema (accessToken, refreshToken, isLoggedIn,
// userData, userType, customRole, firmsData, impersonation, rememberedEmail)
// and scope selection. It does NOT resolve roles, decide routes, or validate
// token expiry; those responsibilities belong to the role, route, and
// backend layers.
//
// # What this package must NOT do
//
//   - Import portalauth, route, or httpapi (no upward imports).
//   - Interpret token contents.
//   - Interleave reads across the two scopes.
package session
