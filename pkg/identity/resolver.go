package identity

import (
	"context"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/auth"
	"github.com/illustrious/cloud/pkg/observability"
	"github.com/illustrious/cloud/pkg/users"
)

// TokenVerifier validates a bearer access token with the identity provider.
type TokenVerifier interface {
	UserInfo(ctx context.Context, accessToken string) (*Claims, error)
}

// Resolver maps bearer tokens to local user accounts. It never creates
// accounts; a verified identity with no local account is still unauthorized.
type Resolver struct {
	verifier TokenVerifier
	users    users.Service
	logger   *observability.Logger
}

// NewResolver creates a new Resolver
func NewResolver(verifier TokenVerifier, users users.Service, logger *observability.Logger) *Resolver {
	return &Resolver{verifier: verifier, users: users, logger: logger}
}

// ResolveUser validates the token with the provider and looks up the local
// account linked to the asserted subject.
func (r *Resolver) ResolveUser(ctx context.Context, token string) (*auth.User, error) {
	claims, err := r.verifier.UserInfo(ctx, token)
	if err != nil {
		r.logger.WithError(err).Debug("token validation failed")
		return nil, apperrors.Unauthorized("Access token is invalid.")
	}

	user, err := r.users.GetUserBySubject(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return user, nil
}
