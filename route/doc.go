// Package route is the single source of truth for landing decisions.
//
// # Decision table
//
// [Decide] evaluates one ordered table: ambiguous roles go to role selection,
// platform admin tags to the super-admin area, firm admins to subscription
// finalization or the firm area, preparers to their dashboard, and clients to
// the verification chooser, the first-run dashboard, or the full dashboard
// depending on verification and onboarding flags. A forced password reset
// preempts every role branch. Every entry point (post-login, post-invite,
// post-signup, the root path check, and route guards) calls this function
// instead of re-deriving the branches inline.
//
// # Architecture boundaries
//
// This package owns path constants and the decision table. A returnTo
// override is applied by callers before Decide runs and never reaches this
// package.
//
// # What this package must NOT do
//
//   - Import any portalauth package other than role.
//   - Read session state or call the backend.
//   - Grow per-caller special cases; new rules extend the table.
package route
