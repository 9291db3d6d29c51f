// Package api wires the HTTP surface: routing, request middleware, and the
// resource handlers that enforce permission snapshots.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/illustrious/cloud/pkg/httputil"
	"github.com/illustrious/cloud/pkg/identity"
	"github.com/illustrious/cloud/pkg/invoices"
	"github.com/illustrious/cloud/pkg/observability"
	"github.com/illustrious/cloud/pkg/orgs"
	"github.com/illustrious/cloud/pkg/permissions"
	"github.com/illustrious/cloud/pkg/reports"
	"github.com/illustrious/cloud/pkg/users"
)

// ServiceName identifies the service in the index response and logs.
const ServiceName = "illustrious-cloud"

// Version is the service version reported by the index endpoint.
const Version = "1.4.2"

// Server represents the API server
type Server struct {
	router   *mux.Router
	users    users.Service
	orgs     orgs.Service
	invoices invoices.Service
	reports  reports.Service
	identity *identity.Handler
	authMW   *permissions.Middleware
	logger   *observability.Logger
}

// NewServer creates a new API server and sets up its routes.
func NewServer(
	usersSvc users.Service,
	orgsSvc orgs.Service,
	invoicesSvc invoices.Service,
	reportsSvc reports.Service,
	identityHandler *identity.Handler,
	authMW *permissions.Middleware,
	metrics *observability.Metrics,
	logger *observability.Logger,
) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		users:    usersSvc,
		orgs:     orgsSvc,
		invoices: invoicesSvc,
		reports:  reportsSvc,
		identity: identityHandler,
		authMW:   authMW,
		logger:   logger,
	}

	s.router.Use(RequestMiddleware(logger))
	if metrics != nil {
		s.router.Use(metrics.HTTPMiddleware(routePattern))
	}
	s.router.Use(authMW.Handler)

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.index).Methods("GET")

	// Login flow
	s.router.HandleFunc("/auth/callback", s.identity.Callback).Methods("GET")
	s.router.HandleFunc("/auth/{provider}", s.identity.Login).Methods("GET")
	s.router.HandleFunc("/signout", s.identity.Signout).Methods("GET")

	// Users
	s.router.HandleFunc("/me", s.getMe).Methods("GET")
	s.router.HandleFunc("/user", s.createUser).Methods("POST")
	s.router.HandleFunc("/user/{id}", s.getUser).Methods("GET")
	s.router.HandleFunc("/user/{id}", s.updateUser).Methods("PUT")
	s.router.HandleFunc("/user/{id}", s.deleteUser).Methods("DELETE")

	// Organizations
	s.router.HandleFunc("/org", s.createOrg).Methods("POST")
	s.router.HandleFunc("/org/user", s.addOrgMember).Methods("POST")
	s.router.HandleFunc("/org/{id}", s.getOrg).Methods("GET")
	s.router.HandleFunc("/org/{id}", s.updateOrg).Methods("PUT")
	s.router.HandleFunc("/org/{id}", s.deleteOrg).Methods("DELETE")

	// Invoices
	s.router.HandleFunc("/invoice", s.createInvoice).Methods("POST")
	s.router.HandleFunc("/invoice/{id}", s.getInvoice).Methods("GET")
	s.router.HandleFunc("/invoice/{id}", s.updateInvoice).Methods("PUT")
	s.router.HandleFunc("/invoice/{id}", s.deleteInvoice).Methods("DELETE")

	// Reports
	s.router.HandleFunc("/report", s.createReport).Methods("POST")
	s.router.HandleFunc("/report/{id}", s.getReport).Methods("GET")
	s.router.HandleFunc("/report/{id}", s.updateReport).Methods("PUT")
	s.router.HandleFunc("/report/{id}", s.deleteReport).Methods("DELETE")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// index handles GET /
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{
		"name":    ServiceName,
		"version": Version,
	})
}

// routePattern returns the matched route template for metric labels.
func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return "unmatched"
}
