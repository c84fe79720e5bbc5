package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayhub/backend/internal/session/domain"
)

// PostgresRepository implements Repository on the shared pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a session repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = `
	id, user_id, hotel_id, role, current_access_token_hash,
	user_agent, ip_address, ip_range, device_fingerprint,
	created_at, expires_at, last_activity_at,
	is_active, token_reuse_count, suspicious_flags
`

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.HotelID, &s.Role, &s.CurrentAccessTokenHash,
		&s.UserAgent, &s.IPAddress, &s.IPRange, &s.DeviceFingerprint,
		&s.CreatedAt, &s.ExpiresAt, &s.LastActivityAt,
		&s.IsActive, &s.TokenReuseCount, &s.SuspiciousFlags,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSession persists the session. The session must have ID set.
func (r *PostgresRepository) CreateSession(ctx context.Context, s *domain.Session) error {
	flags := s.SuspiciousFlags
	if flags == nil {
		flags = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (
			id, user_id, hotel_id, role, current_access_token_hash,
			user_agent, ip_address, ip_range, device_fingerprint,
			created_at, expires_at, last_activity_at,
			is_active, token_reuse_count, suspicious_flags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		s.ID, s.UserID, s.HotelID, s.Role, s.CurrentAccessTokenHash,
		s.UserAgent, s.IPAddress, s.IPRange, s.DeviceFingerprint,
		s.CreatedAt, s.ExpiresAt, s.LastActivityAt,
		s.IsActive, s.TokenReuseCount, flags,
	)
	return err
}

// GetSessionByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetSessionByID(ctx context.Context, id string) (*domain.Session, error) {
	return scanSession(r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1
	`, id))
}

// GetSessionByAccessTokenHash returns the session holding the given access-token hash, or nil.
func (r *PostgresRepository) GetSessionByAccessTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	return scanSession(r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE current_access_token_hash = $1
	`, hash))
}

func (r *PostgresRepository) listSessions(ctx context.Context, query string, args ...any) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListActiveByUserAndHotel returns the user's active sessions scoped to the hotel.
func (r *PostgresRepository) ListActiveByUserAndHotel(ctx context.Context, userID, hotelID string) ([]*domain.Session, error) {
	return r.listSessions(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND hotel_id = $2 AND is_active
		ORDER BY created_at DESC
	`, userID, hotelID)
}

// ListActiveByUser returns all of the user's active sessions across hotels.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	return r.listSessions(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC
	`, userID)
}

// MarkInactive soft-destroys the session. Idempotent.
func (r *PostgresRepository) MarkInactive(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET is_active = FALSE
		WHERE id = $1
	`, sessionID)
	return err
}

// RecordActivity updates last_activity_at and appends newFlags, keeping the stored set distinct.
func (r *PostgresRepository) RecordActivity(ctx context.Context, sessionID string, at time.Time, newFlags []string) error {
	if len(newFlags) == 0 {
		_, err := r.pool.Exec(ctx, `
			UPDATE sessions
			SET last_activity_at = $2
			WHERE id = $1
		`, sessionID, at)
		return err
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET last_activity_at = $2,
		    suspicious_flags = ARRAY(SELECT DISTINCT f FROM unnest(suspicious_flags || $3::text[]) AS f)
		WHERE id = $1
	`, sessionID, at, newFlags)
	return err
}

// SwapAccessToken installs the rotated access-token hash and its new expiry.
func (r *PostgresRepository) SwapAccessToken(ctx context.Context, sessionID, accessTokenHash string, expiresAt, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET current_access_token_hash = $2,
		    expires_at = $3,
		    last_activity_at = $4
		WHERE id = $1
	`, sessionID, accessTokenHash, expiresAt, at)
	return err
}

// IncrementReuseCount bumps the session's reuse counter.
func (r *PostgresRepository) IncrementReuseCount(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET token_reuse_count = token_reuse_count + 1
		WHERE id = $1
	`, sessionID)
	return err
}

// DeactivateExpiredSessions marks up to limit expired active sessions inactive.
// Bounded so the janitor never holds long-lived locks.
func (r *PostgresRepository) DeactivateExpiredSessions(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET is_active = FALSE
		WHERE id IN (
			SELECT id FROM sessions
			WHERE is_active AND expires_at < $1
			LIMIT $2
		)
	`, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CreateRefreshToken persists one link of a session's rotation chain.
func (r *PostgresRepository) CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	var next any
	if t.NextTokenHash != "" {
		next = t.NextTokenHash
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (
			id, session_id, token_hash, created_at, expires_at,
			revoked_at, rotated_at, next_token_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.SessionID, t.TokenHash, t.CreatedAt, t.ExpiresAt, t.RevokedAt, t.RotatedAt, next)
	return err
}

// GetRefreshTokenByHash returns the refresh token with the given hash, or nil.
func (r *PostgresRepository) GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	var next *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, token_hash, created_at, expires_at,
		       revoked_at, rotated_at, next_token_hash
		FROM refresh_tokens
		WHERE token_hash = $1
	`, hash).Scan(&t.ID, &t.SessionID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt, &t.RotatedAt, &next)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if next != nil {
		t.NextTokenHash = *next
	}
	return &t, nil
}

// MarkRefreshTokenRotated performs the conditional rotation transition. The
// WHERE clause re-checks liveness at write time so that of two concurrent
// rotations of the same token exactly one wins; the loser sees false.
func (r *PostgresRepository) MarkRefreshTokenRotated(ctx context.Context, tokenID string, at time.Time, nextTokenHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET rotated_at = $2,
		    next_token_hash = $3
		WHERE id = $1 AND rotated_at IS NULL AND revoked_at IS NULL
	`, tokenID, at, nextTokenHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeSessionRefreshTokens revokes every non-revoked token under the session. Idempotent.
func (r *PostgresRepository) RevokeSessionRefreshTokens(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE session_id = $1 AND revoked_at IS NULL
	`, sessionID, at)
	return err
}

// DeleteExpiredRefreshTokens deletes up to limit tokens past expiry.
func (r *PostgresRepository) DeleteExpiredRefreshTokens(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE id IN (
			SELECT id FROM refresh_tokens
			WHERE expires_at < $1
			LIMIT $2
		)
	`, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
