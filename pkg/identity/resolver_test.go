package identity

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/observability"
	"github.com/illustrious/cloud/pkg/users"
)

type fakeVerifier struct {
	claims *Claims
	err    error
}

func (f *fakeVerifier) UserInfo(ctx context.Context, accessToken string) (*Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func newTestResolver(verifier TokenVerifier, userSvc users.Service) *Resolver {
	return NewResolver(verifier, userSvc, observability.NewLogger(observability.ErrorLevel, io.Discard))
}

func TestResolveUser(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token with linked account", func(t *testing.T) {
		userSvc := newFakeUsers()
		userSvc.subjects["sub-123"] = &users.User{ID: "u1"}
		resolver := newTestResolver(&fakeVerifier{claims: &Claims{Subject: "sub-123"}}, userSvc)

		user, err := resolver.ResolveUser(ctx, "tok-123")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("rejected token is unauthorized", func(t *testing.T) {
		resolver := newTestResolver(&fakeVerifier{err: errors.New("token expired")}, newFakeUsers())

		_, err := resolver.ResolveUser(ctx, "tok-stale")
		require.Error(t, err)
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("valid token without a local account", func(t *testing.T) {
		resolver := newTestResolver(&fakeVerifier{claims: &Claims{Subject: "sub-unknown"}}, newFakeUsers())

		_, err := resolver.ResolveUser(ctx, "tok-123")
		require.Error(t, err)
		apiErr := apperrors.FromError(err)
		assert.Equal(t, 401, apiErr.Code)
		assert.Equal(t, "User was not found", apiErr.Message)
	})
}
