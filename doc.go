// Package portalauth is the identity, session, and navigation core of the
// Seqwens tax-practice portal. It exchanges credentials and invitation
// tokens for sessions, persists them under a caller-selected durability
// policy, resolves which of several overlapping roles a principal holds,
// and deterministically decides which application area they land on.
//
// The package is designed so every entry point (login, invite accept,
// signup, the root path check, role selection, and route guards) produces
// consistent results: role resolution lives in role, the landing decision
// table lives in route, and the Engine wires them to the session store and
// the backend adapter.
//
// # Architecture boundaries
//
// portalauth is the public surface. It exposes [Engine], [Builder],
// [Config], sentinel errors, and value types. Storage lives in session,
// pure computation in role and route, and the HTTP adapter in httpapi.
//
// # What this package must NOT do
//
//   - Verify token signatures or enforce token expiry (the backend is the
//     verifier; expiry is discovered on the next call).
//   - Re-derive landing routes outside route.Decide.
//   - Let backend error shapes leak past the Backend interface: field
//     failures arrive as [FieldErrors], everything else as sentinels.
package portalauth
