// Package middleware provides net/http guards backed by a
// [portalauth.Engine].
//
// Guard redirects anonymous requests to the login screen. RequireArea
// additionally re-runs the role resolution and decision table on every
// request, so a role change made elsewhere evicts the user from an area
// their session no longer earns.
//
// # What this package must NOT do
//
//   - Authenticate or refresh tokens; guards only read engine state.
//   - Cache decisions across requests.
package middleware
