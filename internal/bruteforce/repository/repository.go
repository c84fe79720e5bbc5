package repository

import (
	"context"
	"time"

	"stayhub/backend/internal/bruteforce/domain"
)

// Repository persists brute-force failure records. Lookups return (nil, nil)
// when no row exists.
type Repository interface {
	// Increment atomically counts one failure for the key and returns the
	// resulting record, creating it on first failure.
	Increment(ctx context.Context, identifier, identifierType, endpoint string, at time.Time) (*domain.Attempt, error)
	// Lock marks the key locked until the given time.
	Lock(ctx context.Context, identifier, identifierType, endpoint string, until time.Time) error
	// Clear removes the identifier's records across all endpoints.
	Clear(ctx context.Context, identifier, identifierType string) error
	// DeleteStale removes at most limit records whose last failure and any
	// lockout both predate cutoff; returns the number removed.
	DeleteStale(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
