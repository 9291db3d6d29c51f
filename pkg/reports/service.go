package reports

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/illustrious/cloud/pkg/apperrors"
	"github.com/illustrious/cloud/pkg/store"
)

// Service defines report management operations.
type Service interface {
	CreateReport(ctx context.Context, report *Report, orgID, clientID, creatorID string) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListForUser(ctx context.Context, userID string) ([]*Report, error)
	UpdateReport(ctx context.Context, id string, updates *UpdateReportRequest) (*Report, error)
	DeleteReport(ctx context.Context, id string) error
}

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

const reportColumns = `id, rating, notes, created_at, updated_at`

// CreateReport creates a report with its organization link and user links
// (client and creator) in one transaction. A duplicate id is a conflict.
func (s *PostgresService) CreateReport(ctx context.Context, report *Report, orgID, clientID, creatorID string) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}

	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO reports (id, rating, notes)
			VALUES ($1, $2, $3)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query, report.ID, report.Rating, report.Notes).
			Scan(&report.CreatedAt, &report.UpdatedAt)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return apperrors.Conflict("report already exists")
			}
			return fmt.Errorf("failed to create report: %w", err)
		}

		query = `INSERT INTO org_reports (org_id, report_id) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, orgID, report.ID); err != nil {
			if store.IsForeignKeyViolation(err) {
				return apperrors.NotFound("org not found")
			}
			return fmt.Errorf("failed to link report to org: %w", err)
		}

		query = `INSERT INTO user_reports (user_id, report_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		for _, userID := range []string{clientID, creatorID} {
			if userID == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, query, userID, report.ID); err != nil {
				if store.IsForeignKeyViolation(err) {
					return apperrors.NotFound("user not found")
				}
				return fmt.Errorf("failed to link report to user: %w", err)
			}
		}

		return nil
	})
}

// GetReport retrieves a report by ID
func (s *PostgresService) GetReport(ctx context.Context, id string) (*Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	report := &Report{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&report.ID, &report.Rating, &report.Notes, &report.CreatedAt, &report.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("report not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// ListForUser lists reports linked to the user
func (s *PostgresService) ListForUser(ctx context.Context, userID string) ([]*Report, error) {
	query := `
		SELECT r.id, r.rating, r.notes, r.created_at, r.updated_at
		FROM reports r
		JOIN user_reports ur ON ur.report_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		report := &Report{}
		if err := rows.Scan(&report.ID, &report.Rating, &report.Notes,
			&report.CreatedAt, &report.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// UpdateReport applies a partial update and returns the updated row.
func (s *PostgresService) UpdateReport(ctx context.Context, id string, updates *UpdateReportRequest) (*Report, error) {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if updates.Rating != nil {
		setClauses = append(setClauses, fmt.Sprintf("rating = $%d", argPos))
		args = append(args, *updates.Rating)
		argPos++
	}
	if updates.Notes != nil {
		setClauses = append(setClauses, fmt.Sprintf("notes = $%d", argPos))
		args = append(args, *updates.Notes)
		argPos++
	}

	if len(setClauses) == 0 {
		return s.GetReport(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE reports SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argPos, reportColumns)

	report := &Report{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&report.ID, &report.Rating, &report.Notes, &report.CreatedAt, &report.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("report not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	return report, nil
}

// DeleteReport deletes a report and its link rows in one transaction.
func (s *PostgresService) DeleteReport(ctx context.Context, id string) error {
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_reports WHERE report_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete report user links: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM org_reports WHERE report_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete report org links: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete report: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperrors.NotFound("report not found")
		}
		return nil
	})
}
