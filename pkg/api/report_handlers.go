package api

import (
	"net/http"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/httputil"
	"github.com/illustrious/cloud/pkg/permissions"
	"github.com/illustrious/cloud/pkg/reports"
)

// createReport handles POST /report
func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	if !authCtx.Snapshot.CanCreateInOrg() {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req reports.CreateReportRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Client == "" {
		httputil.WriteBadRequest(w, "client id is required")
		return
	}

	report := req.Report
	if err := s.reports.CreateReport(ctx, &report, req.Org, req.Client, authCtx.User.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, &report)
}

// getReport handles GET /report/{id}
func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	snapshot := authCtx.Snapshot
	if !snapshot.SuperAdmin && (snapshot.Report == nil || !snapshot.Report.Access) {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	report, err := s.reports.GetReport(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// updateReport handles PUT /report/{id}
func (s *Server) updateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	snapshot := authCtx.Snapshot
	if !snapshot.SuperAdmin && (snapshot.Report == nil || !snapshot.Report.Edit) {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req reports.UpdateReportRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	report, err := s.reports.UpdateReport(ctx, id, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// deleteReport handles DELETE /report/{id}
func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	snapshot := authCtx.Snapshot
	if !snapshot.SuperAdmin && (snapshot.Report == nil || !snapshot.Report.Delete) {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	if err := s.reports.DeleteReport(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
