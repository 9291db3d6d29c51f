package api

import (
	"net/http"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/auth"
	"github.com/illustrious/cloud/pkg/httputil"
	"github.com/illustrious/cloud/pkg/orgs"
	"github.com/illustrious/cloud/pkg/permissions"
)

// createOrg handles POST /org. A regular user may create an organization
// only while they belong to none; the creator becomes its owner.
func (s *Server) createOrg(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	snapshot := authCtx.Snapshot
	if !snapshot.SuperAdmin && (snapshot.Org == nil || !snapshot.Org.CanCreate) {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req orgs.CreateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	org := &orgs.Organization{Name: req.Name, ContactEmail: req.ContactEmail}
	if err := s.orgs.CreateOrganization(ctx, org, authCtx.User.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, org)
}

// getOrg handles GET /org/{id}
func (s *Server) getOrg(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if !authCtx.Snapshot.CanAccessOrg() {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	org, err := s.orgs.GetOrganization(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// updateOrg handles PUT /org/{id}
func (s *Server) updateOrg(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if !authCtx.Snapshot.CanEditOrg() {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req orgs.UpdateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org, err := s.orgs.UpdateOrganization(ctx, id, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// deleteOrg handles DELETE /org/{id}. Deleting an organization takes its
// invoices and reports with it, so only owners may do it.
func (s *Server) deleteOrg(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if !authCtx.Snapshot.CanDeleteOrg() {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	if err := s.orgs.DeleteOrganization(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// addOrgMember handles POST /org/user
func (s *Server) addOrgMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	if !authCtx.Snapshot.CanEditOrg() {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req orgs.AddMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.User == "" {
		httputil.WriteBadRequest(w, "user id is required")
		return
	}
	role, ok := auth.ParseRole(req.Role)
	if !ok {
		httputil.WriteBadRequest(w, "invalid role")
		return
	}

	if err := s.orgs.AddMember(ctx, req.Org, req.User, role); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, &orgs.Membership{OrgID: req.Org, UserID: req.User, Role: role})
}
