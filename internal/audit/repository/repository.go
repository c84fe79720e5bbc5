package repository

import (
	"context"

	"stayhub/backend/internal/audit/domain"
)

// Repository persists the security-event audit trail.
type Repository interface {
	Create(ctx context.Context, rec *domain.Record) error
	// GetByID returns the record, or (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*domain.Record, error)
	// ListByHotel returns the hotel's records newest first, paginated.
	ListByHotel(ctx context.Context, hotelID string, limit, offset int32) ([]*domain.Record, error)
}
