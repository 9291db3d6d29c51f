// Package permissions derives and enforces per-request authorization.
//
// # Overview
//
// Every authenticated request gets a fresh permission Snapshot describing
// exactly what the caller may do with the organization or resource the
// request touches. Nothing is cached between requests: revoking a membership
// or demoting a role takes effect on the very next call.
//
// # Model
//
// Authorization is ordinal. A user holds one role per organization, and each
// capability is a simple threshold on that role:
//
//   - client (1): read-only on the resources linked to them
//   - employee (2): may edit resources and create new ones in the org
//   - admin (3): may additionally delete resources
//   - owner (4): may additionally delete the organization itself
//
// A super-admin account bypasses every organization-scoped check.
//
// Reading a resource requires a direct link row (the invoice's client or its
// creator); a role in the owning organization never grants read by itself.
// Edit and delete come only from the org role. When multiple memberships
// reach the same resource the highest role wins.
//
// # Pipeline
//
// Middleware extracts the bearer token, resolves it to a local user through
// an IdentityResolver, asks the Resolver for a Snapshot scoped to the matched
// route, and attaches both to the request context. Handlers then consult the
// Snapshot; every denial is a 401 regardless of whether the target exists,
// so existence is never leaked to unauthorized callers.
//
// Creation requests carry their organization in the payload, so the Resolver
// peeks the body for the org id (restoring it for the handler) and derives
// the org grant from that. A creation payload without an org id is a 400.
package permissions
