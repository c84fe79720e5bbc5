package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayhub/backend/internal/ratelimit/domain"
)

// PostgresRepository stores counters in the rate_limits table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// RecordAttempt is a single upsert so concurrent attempts on the same key
// serialize on the row: the CASE re-checks window expiry at write time.
func (r *PostgresRepository) RecordAttempt(ctx context.Context, identifier, endpoint string, now, resetAt time.Time) (*domain.Entry, error) {
	e := &domain.Entry{Identifier: identifier, Endpoint: endpoint}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO rate_limits (identifier, endpoint, attempts, last_attempt, reset_at)
		VALUES ($1, $2, 1, $3, $4)
		ON CONFLICT (identifier, endpoint) DO UPDATE
		SET attempts = CASE
				WHEN rate_limits.reset_at <= excluded.last_attempt THEN 1
				ELSE rate_limits.attempts + 1
			END,
			last_attempt = excluded.last_attempt,
			reset_at = CASE
				WHEN rate_limits.reset_at <= excluded.last_attempt THEN excluded.reset_at
				ELSE rate_limits.reset_at
			END
		RETURNING attempts, last_attempt, reset_at
	`, identifier, endpoint, now, resetAt).Scan(&e.Attempts, &e.LastAttempt, &e.ResetAt)
	if err != nil {
		return nil, fmt.Errorf("record rate limit attempt: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Get(ctx context.Context, identifier, endpoint string) (*domain.Entry, error) {
	e := &domain.Entry{Identifier: identifier, Endpoint: endpoint}
	err := r.pool.QueryRow(ctx, `
		SELECT attempts, last_attempt, reset_at
		FROM rate_limits
		WHERE identifier = $1 AND endpoint = $2
	`, identifier, endpoint).Scan(&e.Attempts, &e.LastAttempt, &e.ResetAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate limit entry: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, identifier, endpoint string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM rate_limits
		WHERE identifier = $1 AND endpoint = $2
	`, identifier, endpoint)
	if err != nil {
		return fmt.Errorf("delete rate limit entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM rate_limits
		WHERE (identifier, endpoint) IN (
			SELECT identifier, endpoint FROM rate_limits
			WHERE reset_at < $1
			LIMIT $2
		)
	`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired rate limit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
