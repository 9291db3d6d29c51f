package users

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illustrious/cloud/pkg/apperrors"
)

// Test helper to create a new mock service
func newMockService(t *testing.T) (*PostgresService, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	service := NewPostgresService(db)
	return service, mock, db
}

func TestCreateUser(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("success generates id", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		user := &User{}
		err := service.CreateUser(ctx, user)
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, now, user.CreatedAt)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success keeps provided id", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("u1", nil, nil, nil, nil, false, false).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		user := &User{ID: "u1"}
		err := service.CreateUser(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id is a conflict", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505"})

		err := service.CreateUser(ctx, &User{ID: "u1"})
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
		assert.Equal(t, "user already exists", apperrors.FromError(err).Message)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetUser(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		now := time.Now()
		email := "a@example.com"
		rows := sqlmock.NewRows([]string{
			"id", "email", "name", "phone", "picture", "managed", "super_admin", "created_at", "updated_at",
		}).AddRow("u1", email, nil, nil, nil, false, true, now, now)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs("u1").
			WillReturnRows(rows)

		user, err := service.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
		assert.Equal(t, email, *user.Email)
		assert.True(t, user.SuperAdmin)
		assert.Nil(t, user.Name)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetUser(ctx, "missing")
		assert.True(t, apperrors.IsNotFound(err))

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetUserBySubject(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows([]string{
			"id", "email", "name", "phone", "picture", "managed", "super_admin", "created_at", "updated_at",
		}).AddRow("u1", nil, nil, nil, nil, false, false, now, now)

		mock.ExpectQuery(`JOIN user_authentications`).
			WithArgs("sub-123").
			WillReturnRows(rows)

		user, err := service.GetUserBySubject(ctx, "sub-123")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown subject is unauthorized with canonical message", func(t *testing.T) {
		mock.ExpectQuery(`JOIN user_authentications`).
			WithArgs("sub-unknown").
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetUserBySubject(ctx, "sub-unknown")
		require.Error(t, err)
		apiErr := apperrors.FromError(err)
		assert.Equal(t, 401, apiErr.Code)
		assert.Equal(t, "User was not found", apiErr.Message)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("blocked by unpaid invoices", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectRollback()

		err := service.DeleteUser(ctx, "u1")
		require.Error(t, err)
		apiErr := apperrors.FromError(err)
		assert.Equal(t, 409, apiErr.Code)
		assert.Equal(t, "user has unpaid invoices", apiErr.Message)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blocked by reports", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM user_reports`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		err := service.DeleteUser(ctx, "u1")
		require.Error(t, err)
		assert.Equal(t, "user has reports", apperrors.FromError(err).Message)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blocked by owned organization", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM user_reports`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM org_users`).
			WithArgs("u1", 4).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		err := service.DeleteUser(ctx, "u1")
		require.Error(t, err)
		assert.Equal(t, "user owns an organization", apperrors.FromError(err).Message)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success removes link rows then user", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM user_reports`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM org_users`).
			WithArgs("u1", 4).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`DELETE FROM user_invoices`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM org_users`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM user_authentications`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM users`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.DeleteUser(ctx, "u1")
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}
