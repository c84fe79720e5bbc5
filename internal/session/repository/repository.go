package repository

import (
	"context"
	"time"

	"stayhub/backend/internal/session/domain"
)

// Repository defines persistence for sessions and their refresh-token chains.
// Lookups return (nil, nil) for missing rows; errors are database failures only.
type Repository interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSessionByID(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByAccessTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	ListActiveByUserAndHotel(ctx context.Context, userID, hotelID string) ([]*domain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// MarkInactive soft-destroys a session. Idempotent.
	MarkInactive(ctx context.Context, sessionID string) error
	// RecordActivity updates last_activity_at and appends any new suspicion flags (deduplicated).
	RecordActivity(ctx context.Context, sessionID string, at time.Time, newFlags []string) error
	// SwapAccessToken installs a new access-token hash and expiry after a rotation.
	SwapAccessToken(ctx context.Context, sessionID, accessTokenHash string, expiresAt, at time.Time) error
	IncrementReuseCount(ctx context.Context, sessionID string) error
	// DeactivateExpiredSessions bulk-marks up to limit expired sessions inactive; returns the affected count.
	DeactivateExpiredSessions(ctx context.Context, cutoff time.Time, limit int) (int64, error)

	CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	// MarkRefreshTokenRotated performs the conditional rotation transition:
	// it succeeds only if the token is still unrotated and unrevoked at write
	// time. Returns false (no error) when the condition failed, which callers
	// must treat exactly like presenting an already-rotated token.
	MarkRefreshTokenRotated(ctx context.Context, tokenID string, at time.Time, nextTokenHash string) (bool, error)
	// RevokeSessionRefreshTokens revokes every non-revoked token in the session's chain.
	RevokeSessionRefreshTokens(ctx context.Context, sessionID string, at time.Time) error
	// DeleteExpiredRefreshTokens deletes up to limit tokens past expiry; returns the deleted count.
	DeleteExpiredRefreshTokens(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
