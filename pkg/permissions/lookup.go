package permissions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/illustrious/cloud/pkg/auth"
)

// Store defines the membership and resource-link lookups the resolver needs.
type Store interface {
	// LookupRole returns the user's role in the organization, and whether a
	// membership exists at all.
	LookupRole(ctx context.Context, userID, orgID string) (auth.Role, bool, error)

	// MembershipCount returns the number of organizations the user belongs to.
	MembershipCount(ctx context.Context, userID string) (int, error)

	// LookupInvoiceAccess returns whether the user is directly linked to the
	// invoice and the user's best role in the invoice's organization.
	LookupInvoiceAccess(ctx context.Context, userID, invoiceID string) (linked bool, role auth.Role, err error)

	// LookupReportAccess is LookupInvoiceAccess for reports.
	LookupReportAccess(ctx context.Context, userID, reportID string) (linked bool, role auth.Role, err error)
}

// PostgresStore implements Store against the relational schema.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// LookupRole returns the user's role in the organization.
func (s *PostgresStore) LookupRole(ctx context.Context, userID, orgID string) (auth.Role, bool, error) {
	query := `SELECT role FROM org_users WHERE user_id = $1 AND org_id = $2`
	var role auth.Role
	err := s.db.QueryRowContext(ctx, query, userID, orgID).Scan(&role)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up role: %w", err)
	}
	return role, true, nil
}

// MembershipCount returns how many organizations the user belongs to.
func (s *PostgresStore) MembershipCount(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM org_users WHERE user_id = $1`
	var count int
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

// When the user belongs to the resource's organization through more than one
// path the highest role wins, so the grant is deterministic.
const invoiceAccessQuery = `
	SELECT
		EXISTS(SELECT 1 FROM user_invoices WHERE invoice_id = $1 AND user_id = $2),
		COALESCE((
			SELECT ou.role
			FROM org_invoices oi
			JOIN org_users ou ON ou.org_id = oi.org_id
			WHERE oi.invoice_id = $1 AND ou.user_id = $2
			ORDER BY ou.role DESC
			LIMIT 1
		), 0)
`

// LookupInvoiceAccess returns the user's direct link and best org role for an invoice.
func (s *PostgresStore) LookupInvoiceAccess(ctx context.Context, userID, invoiceID string) (bool, auth.Role, error) {
	var linked bool
	var role auth.Role
	err := s.db.QueryRowContext(ctx, invoiceAccessQuery, invoiceID, userID).Scan(&linked, &role)
	if err != nil {
		return false, 0, fmt.Errorf("failed to look up invoice access: %w", err)
	}
	return linked, role, nil
}

const reportAccessQuery = `
	SELECT
		EXISTS(SELECT 1 FROM user_reports WHERE report_id = $1 AND user_id = $2),
		COALESCE((
			SELECT ou.role
			FROM org_reports orp
			JOIN org_users ou ON ou.org_id = orp.org_id
			WHERE orp.report_id = $1 AND ou.user_id = $2
			ORDER BY ou.role DESC
			LIMIT 1
		), 0)
`

// LookupReportAccess returns the user's direct link and best org role for a report.
func (s *PostgresStore) LookupReportAccess(ctx context.Context, userID, reportID string) (bool, auth.Role, error) {
	var linked bool
	var role auth.Role
	err := s.db.QueryRowContext(ctx, reportAccessQuery, reportID, userID).Scan(&linked, &role)
	if err != nil {
		return false, 0, fmt.Errorf("failed to look up report access: %w", err)
	}
	return linked, role, nil
}
