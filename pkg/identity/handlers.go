package identity

import (
	"context"
	"net/http"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/httputil"
	"github.com/illustrious/cloud/pkg/observability"
	"github.com/illustrious/cloud/pkg/users"
)

// LoginProvider is the slice of Provider the handlers need.
type LoginProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Claims, error)
}

// Handler serves the login flow endpoints.
type Handler struct {
	provider LoginProvider
	states   StateStore
	users    users.Service
	appURL   string
	logger   *observability.Logger
}

// NewHandler creates a new Handler
func NewHandler(provider LoginProvider, states StateStore, users users.Service, appURL string, logger *observability.Logger) *Handler {
	return &Handler{provider: provider, states: states, users: users, appURL: appURL, logger: logger}
}

// Login handles GET /auth/{provider}. It persists a single-use state and
// redirects to the provider's authorization endpoint.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "provider")
	if !ok {
		return
	}
	if name != h.provider.Name() {
		httputil.WriteNotFound(w, "unknown identity provider")
		return
	}

	redirectURI := r.URL.Query().Get("redirect_uri")
	state, err := h.states.Create(r.Context(), redirectURI)
	if err != nil {
		h.logger.WithError(err).Error("failed to create login state")
		httputil.WriteError(w, err)
		return
	}

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /auth/callback. It validates the state, exchanges the
// code, and provisions a local account for first-time identities.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := r.URL.Query().Get("state")
	if state == "" {
		httputil.WriteBadRequest(w, "state is required")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteBadRequest(w, "code is required")
		return
	}

	redirectURI, err := h.states.Consume(ctx, state)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	claims, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.logger.WithError(err).Warn("code exchange failed")
		httputil.WriteError(w, apperrors.Unauthorized("login failed"))
		return
	}

	if _, err := h.users.GetUserBySubject(ctx, claims.Subject); err != nil {
		if !apperrors.IsUnauthorized(err) {
			httputil.WriteError(w, err)
			return
		}
		if err := h.provision(ctx, claims); err != nil {
			h.logger.WithError(err).Error("failed to provision user")
			httputil.WriteError(w, err)
			return
		}
	}

	if redirectURI == "" {
		redirectURI = h.appURL
	}
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// provision creates a local account for a first-time identity and links the
// provider subject to it.
func (h *Handler) provision(ctx context.Context, claims *Claims) error {
	user := &users.User{}
	if claims.Email != "" {
		user.Email = &claims.Email
	}
	if claims.Name != "" {
		user.Name = &claims.Name
	}
	if claims.Picture != "" {
		user.Picture = &claims.Picture
	}

	if err := h.users.CreateUser(ctx, user); err != nil {
		return err
	}
	return h.users.LinkSubject(ctx, user.ID, claims.Subject)
}

// Signout handles GET /signout. Tokens are issued and revoked by the
// provider, so signing out is a redirect back to the application.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.appURL, http.StatusFound)
}
