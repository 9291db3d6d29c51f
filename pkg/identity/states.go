package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/illustrious/cloud/pkg/apperrors"
)

// StateStore persists login flow state so callbacks can be validated across
// process restarts. States are single-use and expire after the configured TTL.
type StateStore interface {
	Create(ctx context.Context, redirectURI string) (string, error)
	Consume(ctx context.Context, state string) (string, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// PostgresStateStore implements StateStore on the oauth_states table.
type PostgresStateStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresStateStore creates a new PostgresStateStore
func NewPostgresStateStore(db *sql.DB, ttl time.Duration) *PostgresStateStore {
	return &PostgresStateStore{db: db, ttl: ttl}
}

// Create persists a fresh random state value.
func (s *PostgresStateStore) Create(ctx context.Context, redirectURI string) (string, error) {
	state := uuid.NewString()
	query := `INSERT INTO oauth_states (state, redirect_uri, expires_at) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, state, redirectURI, time.Now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("failed to persist state: %w", err)
	}
	return state, nil
}

// Consume validates and deletes a state in one statement. An unknown or
// expired state is an authorization failure.
func (s *PostgresStateStore) Consume(ctx context.Context, state string) (string, error) {
	query := `
		DELETE FROM oauth_states
		WHERE state = $1 AND expires_at > NOW()
		RETURNING redirect_uri
	`
	var redirectURI string
	err := s.db.QueryRowContext(ctx, query, state).Scan(&redirectURI)
	if err == sql.ErrNoRows {
		return "", apperrors.Unauthorized("invalid login state")
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume state: %w", err)
	}
	return redirectURI, nil
}

// DeleteExpired removes states past their expiry. Run periodically.
func (s *PostgresStateStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired states: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
