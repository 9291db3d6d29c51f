package invoices

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/store"
)

// Service defines invoice management operations.
type Service interface {
	CreateInvoice(ctx context.Context, invoice *Invoice, orgID, clientID, creatorID string) error
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	ListForUser(ctx context.Context, userID string) ([]*Invoice, error)
	UpdateInvoice(ctx context.Context, id string, updates *UpdateInvoiceRequest) (*Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
}

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

const invoiceColumns = `id, paid, value, start_at, end_at, due_at, created_at, updated_at`

// CreateInvoice creates an invoice with its organization link and user links
// (client and creator) in one transaction. A duplicate id is a conflict.
func (s *PostgresService) CreateInvoice(ctx context.Context, invoice *Invoice, orgID, clientID, creatorID string) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}

	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO invoices (id, paid, value, start_at, end_at, due_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query, invoice.ID, invoice.Paid, invoice.Value,
			invoice.StartAt, invoice.EndAt, invoice.DueAt).
			Scan(&invoice.CreatedAt, &invoice.UpdatedAt)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return apperrors.Conflict("invoice already exists")
			}
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		query = `INSERT INTO org_invoices (org_id, invoice_id) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, orgID, invoice.ID); err != nil {
			if store.IsForeignKeyViolation(err) {
				return apperrors.NotFound("org not found")
			}
			return fmt.Errorf("failed to link invoice to org: %w", err)
		}

		query = `INSERT INTO user_invoices (user_id, invoice_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		for _, userID := range []string{clientID, creatorID} {
			if userID == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, query, userID, invoice.ID); err != nil {
				if store.IsForeignKeyViolation(err) {
					return apperrors.NotFound("user not found")
				}
				return fmt.Errorf("failed to link invoice to user: %w", err)
			}
		}

		return nil
	})
}

// GetInvoice retrieves an invoice by ID
func (s *PostgresService) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	invoice := &Invoice{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&invoice.ID, &invoice.Paid, &invoice.Value, &invoice.StartAt, &invoice.EndAt,
		&invoice.DueAt, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("invoice not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// ListForUser lists invoices linked to the user
func (s *PostgresService) ListForUser(ctx context.Context, userID string) ([]*Invoice, error) {
	query := `
		SELECT i.id, i.paid, i.value, i.start_at, i.end_at, i.due_at, i.created_at, i.updated_at
		FROM invoices i
		JOIN user_invoices ui ON ui.invoice_id = i.id
		WHERE ui.user_id = $1
		ORDER BY i.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		invoice := &Invoice{}
		if err := rows.Scan(&invoice.ID, &invoice.Paid, &invoice.Value, &invoice.StartAt,
			&invoice.EndAt, &invoice.DueAt, &invoice.CreatedAt, &invoice.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, nil
}

// UpdateInvoice applies a partial update and returns the updated row.
func (s *PostgresService) UpdateInvoice(ctx context.Context, id string, updates *UpdateInvoiceRequest) (*Invoice, error) {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if updates.Paid != nil {
		setClauses = append(setClauses, fmt.Sprintf("paid = $%d", argPos))
		args = append(args, *updates.Paid)
		argPos++
	}
	if updates.Value != nil {
		setClauses = append(setClauses, fmt.Sprintf("value = $%d", argPos))
		args = append(args, *updates.Value)
		argPos++
	}
	if updates.StartAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("start_at = $%d", argPos))
		args = append(args, *updates.StartAt)
		argPos++
	}
	if updates.EndAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("end_at = $%d", argPos))
		args = append(args, *updates.EndAt)
		argPos++
	}
	if updates.DueAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("due_at = $%d", argPos))
		args = append(args, *updates.DueAt)
		argPos++
	}

	if len(setClauses) == 0 {
		return s.GetInvoice(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE invoices SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argPos, invoiceColumns)

	invoice := &Invoice{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&invoice.ID, &invoice.Paid, &invoice.Value, &invoice.StartAt, &invoice.EndAt,
		&invoice.DueAt, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("invoice not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	return invoice, nil
}

// DeleteInvoice deletes an invoice and its link rows in one transaction.
func (s *PostgresService) DeleteInvoice(ctx context.Context, id string) error {
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_invoices WHERE invoice_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete invoice user links: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM org_invoices WHERE invoice_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete invoice org links: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperrors.NotFound("invoice not found")
		}
		return nil
	})
}
