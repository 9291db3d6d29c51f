package orgs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/auth"
	"github.com/illustrious/cloud/pkg/store"
)

// Service defines organization and membership management operations.
type Service interface {
	CreateOrganization(ctx context.Context, org *Organization, ownerID string) error
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	ListForUser(ctx context.Context, userID string) ([]*Organization, error)
	UpdateOrganization(ctx context.Context, id string, updates *UpdateOrgRequest) (*Organization, error)
	DeleteOrganization(ctx context.Context, id string) error

	AddMember(ctx context.Context, orgID, userID string, role auth.Role) error
	ListMembers(ctx context.Context, orgID string) ([]*Membership, error)
}

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateOrganization creates an organization and its initial OWNER membership
// in one transaction. Every organization has at least one owner from creation.
func (s *PostgresService) CreateOrganization(ctx context.Context, org *Organization, ownerID string) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}

	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO orgs (id, name, contact_email)
			VALUES ($1, $2, $3)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query, org.ID, org.Name, org.ContactEmail).
			Scan(&org.CreatedAt, &org.UpdatedAt)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return apperrors.Conflict("org already exists")
			}
			return fmt.Errorf("failed to create org: %w", err)
		}

		query = `INSERT INTO org_users (org_id, user_id, role) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, query, org.ID, ownerID, auth.RoleOwner); err != nil {
			return fmt.Errorf("failed to create owner membership: %w", err)
		}

		return nil
	})
}

// GetOrganization retrieves an organization by ID
func (s *PostgresService) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	query := `SELECT id, name, contact_email, created_at, updated_at FROM orgs WHERE id = $1`
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.ContactEmail, &org.CreatedAt, &org.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("org not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get org: %w", err)
	}
	return org, nil
}

// ListForUser lists organizations the user belongs to
func (s *PostgresService) ListForUser(ctx context.Context, userID string) ([]*Organization, error) {
	query := `
		SELECT o.id, o.name, o.contact_email, o.created_at, o.updated_at
		FROM orgs o
		JOIN org_users ou ON ou.org_id = o.id
		WHERE ou.user_id = $1
		ORDER BY o.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orgs: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org := &Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.ContactEmail, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan org: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, nil
}

// UpdateOrganization applies a partial update and returns the updated row.
func (s *PostgresService) UpdateOrganization(ctx context.Context, id string, updates *UpdateOrgRequest) (*Organization, error) {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if updates.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *updates.Name)
		argPos++
	}
	if updates.ContactEmail != nil {
		setClauses = append(setClauses, fmt.Sprintf("contact_email = $%d", argPos))
		args = append(args, *updates.ContactEmail)
		argPos++
	}

	if len(setClauses) == 0 {
		return s.GetOrganization(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE orgs SET %s WHERE id = $%d RETURNING id, name, contact_email, created_at, updated_at",
		strings.Join(setClauses, ", "), argPos)

	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&org.ID, &org.Name, &org.ContactEmail, &org.CreatedAt, &org.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("org not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update org: %w", err)
	}
	return org, nil
}

// DeleteOrganization deletes an organization and cascades its invoices,
// reports, memberships, and join rows in one transaction. The link tables
// restrict resource deletion, so each cascade clears the user links first,
// collects the resource ids while clearing the org links, and deletes the
// resource rows last.
func (s *PostgresService) DeleteOrganization(ctx context.Context, id string) error {
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := cascadeResources(ctx, tx, id, "user_invoices", "org_invoices", "invoices", "invoice_id"); err != nil {
			return fmt.Errorf("failed to delete invoices: %w", err)
		}
		if err := cascadeResources(ctx, tx, id, "user_reports", "org_reports", "reports", "report_id"); err != nil {
			return fmt.Errorf("failed to delete reports: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM org_users WHERE org_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM orgs WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete org: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperrors.NotFound("org not found")
		}
		return nil
	})
}

// cascadeResources removes one resource family from an organization. The
// statements run in dependency order: user link rows, then org link rows
// (capturing the resource ids), then the resource rows themselves.
func cascadeResources(ctx context.Context, tx *sql.Tx, orgID, userLinks, orgLinks, table, column string) error {
	query := fmt.Sprintf(
		"DELETE FROM %s WHERE %s IN (SELECT %s FROM %s WHERE org_id = $1)",
		userLinks, column, column, orgLinks)
	if _, err := tx.ExecContext(ctx, query, orgID); err != nil {
		return fmt.Errorf("failed to delete user links: %w", err)
	}

	query = fmt.Sprintf("DELETE FROM %s WHERE org_id = $1 RETURNING %s", orgLinks, column)
	rows, err := tx.QueryContext(ctx, query, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete org links: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var resourceID string
		if err := rows.Scan(&resourceID); err != nil {
			return fmt.Errorf("failed to scan resource id: %w", err)
		}
		ids = append(ids, resourceID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read org links: %w", err)
	}
	// The tx allows one active statement at a time.
	rows.Close()

	if len(ids) == 0 {
		return nil
	}
	query = fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", table)
	if _, err := tx.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete resource rows: %w", err)
	}
	return nil
}

// AddMember adds a user to an organization with the given role
func (s *PostgresService) AddMember(ctx context.Context, orgID, userID string, role auth.Role) error {
	query := `
		INSERT INTO org_users (org_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id, user_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, orgID, userID, role)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return apperrors.NotFound("org or user not found")
		}
		return fmt.Errorf("failed to add member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.Conflict("member already exists")
	}
	return nil
}

// ListMembers retrieves all memberships of an organization
func (s *PostgresService) ListMembers(ctx context.Context, orgID string) ([]*Membership, error) {
	query := `
		SELECT org_id, user_id, role, created_at
		FROM org_users
		WHERE org_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		member := &Membership{}
		if err := rows.Scan(&member.OrgID, &member.UserID, &member.Role, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	return members, nil
}
