// Package api provides the HTTP REST surface of the Illustrious Cloud
// backend.
//
// # Overview
//
// The server exposes four resource groups plus the delegated login flow:
//
//   - Users: profile reads and updates, super-admin managed accounts
//   - Organizations: tenant lifecycle and membership management
//   - Invoices: billing documents linked to one org, a client, and a creator
//   - Reports: engagement reports with the same linking shape
//   - Login: /auth/{provider}, /auth/callback, and /signout
//
// # Request pipeline
//
// Requests flow through three router middlewares in order: request identity
// and logging, metrics instrumentation, then authentication. The
// authentication middleware (pkg/permissions) attaches an auth.AuthContext
// carrying the caller and a per-request permission snapshot; handlers read
// the snapshot and answer 401 for anything it does not grant.
//
// Errors use one body shape everywhere:
//
//	{"message": "...", "code": <http status>}
//
// Conditions outside the application's error taxonomy surface as 503 so
// clients can tell a policy denial from an outage.
package api
