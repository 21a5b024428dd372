// Package password implements the portal-wide password policy.
//
// # Policy
//
// A password must be at least 8 characters and contain an uppercase letter,
// a lowercase letter, a digit, and a symbol from a fixed set. [Check] reports
// every unmet requirement so forms can enumerate all of them at once instead
// of revealing one per submit.
//
// The predicate is implemented once and shared by every flow that collects a
// new password: invitation accept, client signup, firm signup, forced reset,
// and self-service reset. Flows must not carry their own regexes.
//
// # Architecture boundaries
//
// This package owns policy evaluation only. Hashing happens on the backend;
// callers supply plaintext and receive requirement messages.
//
// # What this package must NOT do
//
//   - Store, transmit, or log passwords.
//   - Import any other portalauth package.
package password
