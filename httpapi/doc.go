// Package httpapi is the production [portalauth.Backend] over the portal's
// REST API.
//
// # Response envelope
//
// Every endpoint answers with {success, message, data, errors}. Field-level
// errors arrive either as a structured map keyed by field name or as a
// semicolon-delimited "field: message" string; both forms are normalized
// into one [portalauth.FieldErrors] at this boundary so neither shape leaks
// into callers.
//
// # Error mapping
//
// Transport and timeout failures wrap [portalauth.ErrNetwork]. A 401 on an
// authenticated call maps to [portalauth.ErrSessionExpired]. Endpoint-
// specific statuses map to the matching sentinel (invalid credentials,
// invalid code, expired or consumed invitation tokens, wrong OTP or
// temporary password).
//
// # What this package must NOT do
//
//   - Retry requests (retries belong to the transport collaborator).
//   - Persist anything; the session store is the Engine's concern.
//   - Surface raw HTTP statuses or envelope shapes to callers.
package httpapi
