package permissions

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/auth"
	"github.com/illustrious/cloud/pkg/contextkeys"
	"github.com/illustrious/cloud/pkg/httputil"
	"github.com/illustrious/cloud/pkg/observability"
)

// IdentityResolver turns a bearer token into a known user. Implemented by
// pkg/identity against the OIDC provider.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, token string) (*auth.User, error)
}

// Middleware authenticates every request outside the public allowlist and
// attaches an auth.AuthContext with a freshly derived permission snapshot.
// Missing credentials, unknown identities, and failed lookups all answer 401.
type Middleware struct {
	identity IdentityResolver
	resolver *Resolver
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewMiddleware creates a new Middleware
func NewMiddleware(identity IdentityResolver, resolver *Resolver, metrics *observability.Metrics, logger *observability.Logger) *Middleware {
	return &Middleware{identity: identity, resolver: resolver, metrics: metrics, logger: logger}
}

// publicPath reports whether the request path is served without credentials.
func publicPath(path string) bool {
	if path == "/" || path == "/signout" {
		return true
	}
	return strings.HasPrefix(path, "/auth/")
}

// Handler wraps next with authentication and snapshot derivation.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			m.countIdentityFailure("missing_token")
			httputil.WriteError(w, apperrors.Unauthorized("Access token is missing."))
			return
		}

		ctx := r.Context()
		user, err := m.identity.ResolveUser(ctx, token)
		if err != nil {
			m.countIdentityFailure("unresolved")
			m.logger.WithError(err).Debug("identity resolution failed")
			httputil.WriteError(w, err)
			return
		}

		start := time.Now()
		snapshot, err := m.resolver.Derive(ctx, user, r)
		if m.metrics != nil {
			m.metrics.PermissionDeriveDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			m.countCheck("error")
			m.logger.WithError(err).WithField("user_id", user.ID).Error("permission derivation failed")
			httputil.WriteError(w, err)
			return
		}
		m.countCheck("derived")

		ctx = contextkeys.WithUserID(ctx, user.ID)
		ctx = contextkeys.WithAuth(ctx, &auth.AuthContext{User: user, Snapshot: snapshot})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) countCheck(outcome string) {
	if m.metrics != nil {
		m.metrics.PermissionChecksTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Middleware) countIdentityFailure(reason string) {
	if m.metrics != nil {
		m.metrics.IdentityFailuresTotal.WithLabelValues(reason).Inc()
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetAuth retrieves the authentication context attached by the middleware.
func GetAuth(ctx context.Context) (*auth.AuthContext, bool) {
	authCtx, ok := ctx.Value(contextkeys.AuthKey).(*auth.AuthContext)
	return authCtx, ok && authCtx != nil
}

// MustAuth retrieves the authentication context or writes a 401 and returns
// false. Handlers behind the middleware use it as a guard.
func MustAuth(ctx context.Context, w http.ResponseWriter) (*auth.AuthContext, bool) {
	authCtx, ok := GetAuth(ctx)
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Access token is missing."))
		return nil, false
	}
	return authCtx, true
}
