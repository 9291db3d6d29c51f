package api

import (
	"net/http"
	"strings"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/auth"
	"github.com/illustrious/cloud/pkg/httputil"
	"github.com/illustrious/cloud/pkg/invoices"
	"github.com/illustrious/cloud/pkg/orgs"
	"github.com/illustrious/cloud/pkg/permissions"
	"github.com/illustrious/cloud/pkg/reports"
	"github.com/illustrious/cloud/pkg/users"
)

// meResponse is the profile payload with optional related collections
// selected by the include query parameter.
type meResponse struct {
	User     *auth.User           `json:"user"`
	Orgs     []*orgs.Organization `json:"orgs,omitempty"`
	Invoices []*invoices.Invoice  `json:"invoices,omitempty"`
	Reports  []*reports.Report    `json:"reports,omitempty"`
}

// getMe handles GET /me
func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}

	resp := &meResponse{User: authCtx.User}

	for _, include := range strings.Split(r.URL.Query().Get("include"), ",") {
		var err error
		switch strings.TrimSpace(include) {
		case "orgs":
			resp.Orgs, err = s.orgs.ListForUser(ctx, authCtx.User.ID)
		case "invoices":
			resp.Invoices, err = s.invoices.ListForUser(ctx, authCtx.User.ID)
		case "reports":
			resp.Reports, err = s.reports.ListForUser(ctx, authCtx.User.ID)
		}
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	httputil.WriteSuccess(w, resp)
}

// createUser handles POST /user. Creating accounts for other people is a
// super-admin operation; everyone else joins through the login flow.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	if !authCtx.Snapshot.SuperAdmin {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req users.CreateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user := &users.User{
		Email:      req.Email,
		Name:       req.Name,
		Phone:      req.Phone,
		Picture:    req.Picture,
		Managed:    req.Managed,
		SuperAdmin: req.SuperAdmin,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, user)
}

// selfOrSuperAdmin guards the /user/{id} routes.
func selfOrSuperAdmin(authCtx *auth.AuthContext, id string) bool {
	return authCtx.Snapshot.SuperAdmin || authCtx.User.ID == id
}

// getUser handles GET /user/{id}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if !selfOrSuperAdmin(authCtx, id) {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// updateUser handles PUT /user/{id}
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if !selfOrSuperAdmin(authCtx, id) {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req users.UpdateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := s.users.UpdateUser(ctx, id, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// deleteUser handles DELETE /user/{id}
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if !selfOrSuperAdmin(authCtx, id) {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
