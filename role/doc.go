// Package role computes the effective routing role for a portal principal.
//
// # Resolution order
//
// A custom role combined with a tax_preparer tag always wins. A principal
// holding more than one tag is ambiguous and must go through the role
// selection screen; the resolver never breaks ties on its own. A single tag
// is aliased (staff to tax_preparer, firm to admin) and returned as-is
// otherwise. An empty tag list resolves to client.
//
// # Architecture boundaries
//
// This package is pure computation over role tags. It does NOT read storage,
// call the backend, or decide routes; those responsibilities belong to the
// session store, the Engine, and the route package respectively.
//
// # What this package must NOT do
//
//   - Import any other portalauth package.
//   - Perform I/O of any kind.
//   - Pick an arbitrary role when the tag list is ambiguous.
package role
