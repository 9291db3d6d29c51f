package invoices

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

func TestCreateInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("links org, client, and creator in one transaction", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO invoices`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`INSERT INTO org_invoices`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO user_invoices`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO user_invoices`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		invoice := &Invoice{Value: 125000, StartAt: now, EndAt: now, DueAt: now}
		err := service.CreateInvoice(ctx, invoice, "o1", "client-1", "emp-1")
		require.NoError(t, err)
		assert.NotEmpty(t, invoice.ID)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("client who is also creator links once", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO invoices`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`INSERT INTO org_invoices`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// ON CONFLICT DO NOTHING absorbs the duplicate link
		mock.ExpectExec(`INSERT INTO user_invoices`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO user_invoices`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := service.CreateInvoice(ctx, &Invoice{Value: 100}, "o1", "u1", "u1")
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id is a conflict", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO invoices`).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err := service.CreateInvoice(ctx, &Invoice{ID: "inv-1"}, "o1", "c1", "e1")
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
		assert.Equal(t, "invoice already exists", apperrors.FromError(err).Message)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown org is not found", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO invoices`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`INSERT INTO org_invoices`).
			WillReturnError(&pq.Error{Code: "23503"})
		mock.ExpectRollback()

		err := service.CreateInvoice(ctx, &Invoice{}, "ghost", "c1", "e1")
		assert.True(t, apperrors.IsNotFound(err))

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetInvoice(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows([]string{
			"id", "paid", "value", "start_at", "end_at", "due_at", "created_at", "updated_at",
		}).AddRow("inv-1", false, int64(125000), now, now, now, now, now)

		mock.ExpectQuery(`SELECT .+ FROM invoices WHERE id = \$1`).
			WithArgs("inv-1").
			WillReturnRows(rows)

		invoice, err := service.GetInvoice(ctx, "inv-1")
		require.NoError(t, err)
		assert.Equal(t, int64(125000), invoice.Value)
		assert.False(t, invoice.Paid)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM invoices WHERE id = \$1`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetInvoice(ctx, "missing")
		assert.True(t, apperrors.IsNotFound(err))

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateInvoice(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("marks paid", func(t *testing.T) {
		now := time.Now()
		paid := true
		rows := sqlmock.NewRows([]string{
			"id", "paid", "value", "start_at", "end_at", "due_at", "created_at", "updated_at",
		}).AddRow("inv-1", true, int64(100), now, now, now, now, now)

		mock.ExpectQuery(`UPDATE invoices SET paid = \$1, updated_at = NOW\(\)`).
			WithArgs(true, "inv-1").
			WillReturnRows(rows)

		invoice, err := service.UpdateInvoice(ctx, "inv-1", &UpdateInvoiceRequest{Paid: &paid})
		require.NoError(t, err)
		assert.True(t, invoice.Paid)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteInvoice(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM user_invoices`).WithArgs("inv-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM org_invoices`).WithArgs("inv-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM invoices`).WithArgs("inv-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := service.DeleteInvoice(ctx, "inv-1")
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
