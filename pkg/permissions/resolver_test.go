package permissions

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/auth"
	"github.com/illustrious/cloud/pkg/observability"
)

// fakeStore is a canned-answer Store that counts lookups.
type fakeStore struct {
	role        auth.Role
	hasRole     bool
	memberships int
	linked      bool
	lookups     int
}

func (f *fakeStore) LookupRole(ctx context.Context, userID, orgID string) (auth.Role, bool, error) {
	f.lookups++
	return f.role, f.hasRole, nil
}

func (f *fakeStore) MembershipCount(ctx context.Context, userID string) (int, error) {
	f.lookups++
	return f.memberships, nil
}

func (f *fakeStore) LookupInvoiceAccess(ctx context.Context, userID, invoiceID string) (bool, auth.Role, error) {
	f.lookups++
	return f.linked, f.role, nil
}

func (f *fakeStore) LookupReportAccess(ctx context.Context, userID, reportID string) (bool, auth.Role, error) {
	f.lookups++
	return f.linked, f.role, nil
}

// derive routes the request through mux so the resolver sees the matched
// route template, the same way it does behind the real router.
func derive(t *testing.T, store Store, user *auth.User, method, path string, body string) (*auth.Snapshot, error) {
	t.Helper()
	resolver := NewResolver(store, observability.NewLogger(observability.ErrorLevel, io.Discard))

	var snapshot *auth.Snapshot
	var deriveErr error
	capture := func(w http.ResponseWriter, r *http.Request) {
		snapshot, deriveErr = resolver.Derive(r.Context(), user, r)
	}

	router := mux.NewRouter()
	for _, template := range []string{
		"/me", "/user", "/user/{id}", "/org", "/org/user", "/org/{id}",
		"/invoice", "/invoice/{id}", "/report", "/report/{id}",
	} {
		router.HandleFunc(template, capture)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	router.ServeHTTP(httptest.NewRecorder(), req)
	return snapshot, deriveErr
}

func TestDeriveProfileRoutes(t *testing.T) {
	user := &auth.User{ID: "u1"}

	t.Run("me needs no lookups", func(t *testing.T) {
		store := &fakeStore{}
		snapshot, err := derive(t, store, user, "GET", "/me", "")
		require.NoError(t, err)
		assert.Equal(t, 0, store.lookups)
		assert.Nil(t, snapshot.Org)
		assert.Nil(t, snapshot.Invoice)
		assert.Nil(t, snapshot.Report)
	})

	t.Run("super admin flag carries over", func(t *testing.T) {
		snapshot, err := derive(t, &fakeStore{}, &auth.User{ID: "u1", SuperAdmin: true}, "GET", "/user/u2", "")
		require.NoError(t, err)
		assert.True(t, snapshot.SuperAdmin)
	})
}

func TestDeriveOrgCreation(t *testing.T) {
	user := &auth.User{ID: "u1"}

	t.Run("no memberships allows creation", func(t *testing.T) {
		snapshot, err := derive(t, &fakeStore{memberships: 0}, user, "POST", "/org", `{"name":"Acme"}`)
		require.NoError(t, err)
		require.NotNil(t, snapshot.Org)
		assert.True(t, snapshot.Org.CanCreate)
	})

	t.Run("existing membership blocks creation", func(t *testing.T) {
		snapshot, err := derive(t, &fakeStore{memberships: 1}, user, "POST", "/org", `{"name":"Acme"}`)
		require.NoError(t, err)
		require.NotNil(t, snapshot.Org)
		assert.False(t, snapshot.Org.CanCreate)
	})
}

func TestDeriveOrgRoute(t *testing.T) {
	user := &auth.User{ID: "u1"}

	t.Run("member gets role grant", func(t *testing.T) {
		snapshot, err := derive(t, &fakeStore{role: auth.RoleAdmin, hasRole: true}, user, "GET", "/org/o1", "")
		require.NoError(t, err)
		require.NotNil(t, snapshot.Org)
		assert.Equal(t, "o1", snapshot.Org.ID)
		assert.True(t, snapshot.Org.HasRole)
		assert.Equal(t, auth.RoleAdmin, snapshot.Org.Role)
		assert.True(t, snapshot.CanAccessOrg())
	})

	t.Run("non-member gets empty grant", func(t *testing.T) {
		snapshot, err := derive(t, &fakeStore{}, user, "GET", "/org/o1", "")
		require.NoError(t, err)
		require.NotNil(t, snapshot.Org)
		assert.False(t, snapshot.Org.HasRole)
		assert.False(t, snapshot.CanAccessOrg())
	})
}

func TestDeriveCreationFromBody(t *testing.T) {
	user := &auth.User{ID: "u1"}

	t.Run("org id from invoice payload", func(t *testing.T) {
		store := &fakeStore{role: auth.RoleEmployee, hasRole: true}
		snapshot, err := derive(t, store, user, "POST", "/invoice", `{"org":"o1","client":"c1","invoice":{"value":100}}`)
		require.NoError(t, err)
		require.NotNil(t, snapshot.Org)
		assert.Equal(t, "o1", snapshot.Org.ID)
		assert.True(t, snapshot.CanCreateInOrg())
	})

	t.Run("missing org id is a bad request", func(t *testing.T) {
		_, err := derive(t, &fakeStore{}, user, "POST", "/invoice", `{"client":"c1"}`)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, apperrors.FromError(err).Code)
	})

	t.Run("malformed payload is a bad request", func(t *testing.T) {
		_, err := derive(t, &fakeStore{}, user, "POST", "/report", `not json`)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, apperrors.FromError(err).Code)
	})
}

func TestDeriveResourceGrants(t *testing.T) {
	user := &auth.User{ID: "u1"}

	t.Run("directly linked client can read only", func(t *testing.T) {
		snapshot, err := derive(t, &fakeStore{linked: true}, user, "GET", "/invoice/inv-1", "")
		require.NoError(t, err)
		require.NotNil(t, snapshot.Invoice)
		assert.True(t, snapshot.Invoice.Access)
		assert.False(t, snapshot.Invoice.Edit)
		assert.False(t, snapshot.Invoice.Delete)
	})

	t.Run("linked employee can read and edit but not delete", func(t *testing.T) {
		snapshot, err := derive(t, &fakeStore{linked: true, role: auth.RoleEmployee}, user, "GET", "/invoice/inv-1", "")
		require.NoError(t, err)
		assert.True(t, snapshot.Invoice.Access)
		assert.True(t, snapshot.Invoice.Edit)
		assert.False(t, snapshot.Invoice.Delete)
	})

	t.Run("role without a link row never grants read", func(t *testing.T) {
		snapshot, err := derive(t, &fakeStore{linked: false, role: auth.RoleOwner}, user, "GET", "/invoice/inv-1", "")
		require.NoError(t, err)
		require.NotNil(t, snapshot.Invoice)
		assert.False(t, snapshot.Invoice.Access)
		assert.True(t, snapshot.Invoice.Edit)
		assert.True(t, snapshot.Invoice.Delete)
	})

	t.Run("admin in the org can delete", func(t *testing.T) {
		snapshot, err := derive(t, &fakeStore{role: auth.RoleAdmin}, user, "DELETE", "/report/rep-1", "")
		require.NoError(t, err)
		require.NotNil(t, snapshot.Report)
		assert.True(t, snapshot.Report.Delete)
	})

	t.Run("no relationship denies access", func(t *testing.T) {
		snapshot, err := derive(t, &fakeStore{}, user, "GET", "/report/rep-1", "")
		require.NoError(t, err)
		require.NotNil(t, snapshot.Report)
		assert.False(t, snapshot.Report.Access)
	})
}

func TestDeriveBodyRestoredAfterPeek(t *testing.T) {
	user := &auth.User{ID: "u1"}
	resolver := NewResolver(&fakeStore{hasRole: true, role: auth.RoleAdmin},
		observability.NewLogger(observability.ErrorLevel, io.Discard))

	payload := `{"org":"o1","client":"c1"}`
	var after string
	router := mux.NewRouter()
	router.HandleFunc("/invoice", func(w http.ResponseWriter, r *http.Request) {
		_, err := resolver.Derive(r.Context(), user, r)
		require.NoError(t, err)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		after = string(body)
	})

	req := httptest.NewRequest("POST", "/invoice", strings.NewReader(payload))
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, payload, after)
}
