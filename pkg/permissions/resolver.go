package permissions

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/auth"
	"github.com/illustrious/cloud/pkg/observability"
)

// maxPeekBytes bounds how much of a request body the resolver will read when
// it needs the organization id from a creation payload.
const maxPeekBytes = 1 << 20

// Resolver derives a permission snapshot for one authenticated request. The
// snapshot is computed fresh on every request; nothing is cached between
// requests, so membership changes take effect immediately.
type Resolver struct {
	store  Store
	logger *observability.Logger
}

// NewResolver creates a new Resolver
func NewResolver(store Store, logger *observability.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Derive inspects the matched route and populates the slices of the snapshot
// the request can actually use. Routes that only touch the caller's own
// profile get a bare snapshot with no database lookups.
func (rs *Resolver) Derive(ctx context.Context, user *auth.User, r *http.Request) (*auth.Snapshot, error) {
	snapshot := &auth.Snapshot{SuperAdmin: user.SuperAdmin}

	route := mux.CurrentRoute(r)
	if route == nil {
		return snapshot, nil
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return snapshot, nil
	}
	vars := mux.Vars(r)

	switch template {
	case "/me", "/user", "/user/{id}":
		// Profile routes are decided by identity alone.
		return snapshot, nil

	case "/org":
		if r.Method == http.MethodPost {
			count, err := rs.store.MembershipCount(ctx, user.ID)
			if err != nil {
				return nil, err
			}
			snapshot.Org = &auth.OrgGrant{CanCreate: count == 0}
		}
		return snapshot, nil

	case "/org/{id}":
		return snapshot, rs.deriveOrg(ctx, snapshot, user.ID, vars["id"])

	case "/org/user", "/invoice", "/report":
		if r.Method != http.MethodPost {
			return snapshot, nil
		}
		orgID, err := peekOrgID(r)
		if err != nil {
			return nil, err
		}
		return snapshot, rs.deriveOrg(ctx, snapshot, user.ID, orgID)

	case "/invoice/{id}":
		linked, role, err := rs.store.LookupInvoiceAccess(ctx, user.ID, vars["id"])
		if err != nil {
			return nil, err
		}
		snapshot.Invoice = resourceGrant(vars["id"], linked, role)
		return snapshot, nil

	case "/report/{id}":
		linked, role, err := rs.store.LookupReportAccess(ctx, user.ID, vars["id"])
		if err != nil {
			return nil, err
		}
		snapshot.Report = resourceGrant(vars["id"], linked, role)
		return snapshot, nil
	}

	return snapshot, nil
}

func (rs *Resolver) deriveOrg(ctx context.Context, snapshot *auth.Snapshot, userID, orgID string) error {
	role, hasRole, err := rs.store.LookupRole(ctx, userID, orgID)
	if err != nil {
		return err
	}
	snapshot.Org = &auth.OrgGrant{
		ID:        orgID,
		Role:      role,
		HasRole:   hasRole,
		CanCreate: hasRole && role.CanEdit(),
	}
	return nil
}

// resourceGrant folds a direct user link and an organization role into the
// access/edit/delete triple. Reading requires the link row; a role in the
// owning organization grants edit and delete but never read on its own.
func resourceGrant(id string, linked bool, role auth.Role) *auth.ResourceGrant {
	return &auth.ResourceGrant{
		ID:     id,
		Access: linked,
		Edit:   role.CanEdit(),
		Delete: role.CanDelete(),
	}
}

// peekOrgID reads the organization id from a creation payload without
// consuming the body; handlers decode the same bytes again afterwards.
func peekOrgID(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	if err != nil {
		return "", apperrors.BadRequest("invalid request body")
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Org string `json:"org"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", apperrors.BadRequest("invalid request body")
	}
	if payload.Org == "" {
		return "", apperrors.BadRequest("org id is required")
	}
	return payload.Org, nil
}
