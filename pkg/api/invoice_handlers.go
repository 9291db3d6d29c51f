package api

import (
	"net/http"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/httputil"
	"github.com/illustrious/cloud/pkg/invoices"
	"github.com/illustrious/cloud/pkg/permissions"
)

// createInvoice handles POST /invoice. The caller needs an editing role in
// the target organization; the invoice links to the client and the caller.
func (s *Server) createInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := permissions.MustAuth(ctx, w)
	if !ok {
		return
	}
	if !authCtx.Snapshot.CanCreateInOrg() {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req invoices.CreateInvoiceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Client == "" {
		httputil.WriteBadRequest(w, "client id is required")
		return
	}

	invoice := req.Invoice
	if err := s.invoices.CreateInvoice(ctx, &invoice, req.Org, req.Client, authCtx.User.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, &invoice)
}

// getInvoice handles GET /invoice/{id}
func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
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
	if !snapshot.SuperAdmin && (snapshot.Invoice == nil || !snapshot.Invoice.Access) {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	invoice, err := s.invoices.GetInvoice(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, invoice)
}

// updateInvoice handles PUT /invoice/{id}
func (s *Server) updateInvoice(w http.ResponseWriter, r *http.Request) {
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
	if !snapshot.SuperAdmin && (snapshot.Invoice == nil || !snapshot.Invoice.Edit) {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req invoices.UpdateInvoiceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	invoice, err := s.invoices.UpdateInvoice(ctx, id, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, invoice)
}

// deleteInvoice handles DELETE /invoice/{id}
func (s *Server) deleteInvoice(w http.ResponseWriter, r *http.Request) {
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
	if !snapshot.SuperAdmin && (snapshot.Invoice == nil || !snapshot.Invoice.Delete) {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	if err := s.invoices.DeleteInvoice(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
