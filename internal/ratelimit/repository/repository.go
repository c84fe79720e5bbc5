package repository

import (
	"context"
	"time"

	"stayhub/backend/internal/ratelimit/domain"
)

// Repository persists rate-limit counters. Lookups return (nil, nil) when no
// row exists.
type Repository interface {
	// RecordAttempt atomically counts one attempt for the key and returns the
	// resulting entry. If no entry exists, or the existing window has closed
	// by now, a fresh window is started at attempts 1 with the given resetAt.
	RecordAttempt(ctx context.Context, identifier, endpoint string, now, resetAt time.Time) (*domain.Entry, error)
	Get(ctx context.Context, identifier, endpoint string) (*domain.Entry, error)
	Delete(ctx context.Context, identifier, endpoint string) error
	// DeleteExpired removes at most limit entries whose window closed before
	// cutoff and returns the number removed.
	DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
