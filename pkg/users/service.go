package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/auth"
	"github.com/illustrious/cloud/pkg/store"
)

// Service defines user management operations.
type Service interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserBySubject(ctx context.Context, subject string) (*User, error)
	LinkSubject(ctx context.Context, userID, subject string) error
	UpdateUser(ctx context.Context, id string, updates *UpdateUserRequest) (*User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

const userColumns = `id, email, name, phone, picture, managed, super_admin, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Phone, &user.Picture,
		&user.Managed, &user.SuperAdmin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser creates a new user. The id is generated when absent.
func (s *PostgresService) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, email, name, phone, picture, managed, super_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, user.ID, user.Email, user.Name, user.Phone,
		user.Picture, user.Managed, user.SuperAdmin).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return apperrors.Conflict("user already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (s *PostgresService) GetUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserBySubject retrieves the user linked to an external-identity subject.
// Used by the identity resolver; it never creates users.
func (s *PostgresService) GetUserBySubject(ctx context.Context, subject string) (*User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.phone, u.picture, u.managed, u.super_admin, u.created_at, u.updated_at
		FROM users u
		JOIN user_authentications ua ON ua.user_id = u.id
		WHERE ua.subject = $1
	`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, subject))
	if err == sql.ErrNoRows {
		return nil, apperrors.Unauthorized("User was not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by subject: %w", err)
	}
	return user, nil
}

// LinkSubject associates an external-identity subject with a user.
func (s *PostgresService) LinkSubject(ctx context.Context, userID, subject string) error {
	query := `
		INSERT INTO user_authentications (user_id, subject)
		VALUES ($1, $2)
		ON CONFLICT (subject) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, userID, subject); err != nil {
		return fmt.Errorf("failed to link subject: %w", err)
	}
	return nil
}

// UpdateUser applies a partial profile update and returns the updated row.
func (s *PostgresService) UpdateUser(ctx context.Context, id string, updates *UpdateUserRequest) (*User, error) {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if updates.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argPos))
		args = append(args, *updates.Email)
		argPos++
	}
	if updates.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *updates.Name)
		argPos++
	}
	if updates.Phone != nil {
		setClauses = append(setClauses, fmt.Sprintf("phone = $%d", argPos))
		args = append(args, *updates.Phone)
		argPos++
	}
	if updates.Picture != nil {
		setClauses = append(setClauses, fmt.Sprintf("picture = $%d", argPos))
		args = append(args, *updates.Picture)
		argPos++
	}

	if len(setClauses) == 0 {
		return s.GetUser(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argPos, userColumns)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// DeleteUser deletes a user. The deletion is blocked while the user has
// unpaid invoices, any reports, or owns an organization; link rows are
// removed in the same transaction.
func (s *PostgresService) DeleteUser(ctx context.Context, id string) error {
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var unpaid int
		query := `
			SELECT COUNT(*)
			FROM user_invoices ui
			JOIN invoices i ON i.id = ui.invoice_id
			WHERE ui.user_id = $1 AND i.paid = FALSE
		`
		if err := tx.QueryRowContext(ctx, query, id).Scan(&unpaid); err != nil {
			return fmt.Errorf("failed to count unpaid invoices: %w", err)
		}
		if unpaid > 0 {
			return apperrors.Conflict("user has unpaid invoices")
		}

		var reports int
		query = `SELECT COUNT(*) FROM user_reports WHERE user_id = $1`
		if err := tx.QueryRowContext(ctx, query, id).Scan(&reports); err != nil {
			return fmt.Errorf("failed to count reports: %w", err)
		}
		if reports > 0 {
			return apperrors.Conflict("user has reports")
		}

		var owned int
		query = `SELECT COUNT(*) FROM org_users WHERE user_id = $1 AND role = $2`
		if err := tx.QueryRowContext(ctx, query, id, int(auth.RoleOwner)).Scan(&owned); err != nil {
			return fmt.Errorf("failed to count owned organizations: %w", err)
		}
		if owned > 0 {
			return apperrors.Conflict("user owns an organization")
		}

		for _, table := range []string{"user_invoices", "org_users", "user_authentications"} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", table), id); err != nil {
				return fmt.Errorf("failed to delete %s rows: %w", table, err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperrors.NotFound("user not found")
		}
		return nil
	})
}
