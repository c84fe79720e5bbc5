package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stayhub/backend/internal/bruteforce/domain"
)

// PostgresRepository stores failure records in the brute_force_attempts table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Increment(ctx context.Context, identifier, identifierType, endpoint string, at time.Time) (*domain.Attempt, error) {
	a := &domain.Attempt{
		Identifier:     identifier,
		IdentifierType: identifierType,
		Endpoint:       endpoint,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO brute_force_attempts (identifier, identifier_type, endpoint, failed_attempts, last_attempt, is_locked, locked_until)
		VALUES ($1, $2, $3, 1, $4, FALSE, NULL)
		ON CONFLICT (identifier, identifier_type, endpoint) DO UPDATE
		SET failed_attempts = brute_force_attempts.failed_attempts + 1,
			last_attempt = excluded.last_attempt
		RETURNING failed_attempts, last_attempt, is_locked, locked_until
	`, identifier, identifierType, endpoint, at).Scan(&a.FailedAttempts, &a.LastAttempt, &a.IsLocked, &a.LockedUntil)
	if err != nil {
		return nil, fmt.Errorf("increment brute force attempt: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Lock(ctx context.Context, identifier, identifierType, endpoint string, until time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE brute_force_attempts
		SET is_locked = TRUE,
			locked_until = $4
		WHERE identifier = $1 AND identifier_type = $2 AND endpoint = $3
	`, identifier, identifierType, endpoint, until)
	if err != nil {
		return fmt.Errorf("lock brute force key: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Clear(ctx context.Context, identifier, identifierType string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM brute_force_attempts
		WHERE identifier = $1 AND identifier_type = $2
	`, identifier, identifierType)
	if err != nil {
		return fmt.Errorf("clear brute force attempts: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteStale(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM brute_force_attempts
		WHERE (identifier, identifier_type, endpoint) IN (
			SELECT identifier, identifier_type, endpoint FROM brute_force_attempts
			WHERE last_attempt < $1 AND (locked_until IS NULL OR locked_until < $1)
			LIMIT $2
		)
	`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("delete stale brute force attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
