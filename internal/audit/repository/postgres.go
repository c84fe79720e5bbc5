package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayhub/backend/internal/audit/domain"
)

// PostgresRepository stores records in the security_events table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *domain.Record) error {
	var details []byte
	if len(rec.Details) > 0 {
		var err error
		details, err = json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("encode security event details: %w", err)
		}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO security_events (id, hotel_id, user_id, session_id, event_type, severity, flags, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.HotelID, rec.UserID, rec.SessionID, rec.EventType, rec.Severity, rec.Flags, details, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create security event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `
		SELECT id, hotel_id, user_id, session_id, event_type, severity, flags, details, created_at
		FROM security_events
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get security event: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListByHotel(ctx context.Context, hotelID string, limit, offset int32) ([]*domain.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, hotel_id, user_id, session_id, event_type, severity, flags, details, created_at
		FROM security_events
		WHERE hotel_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, hotelID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list security events: %w", err)
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list security events: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list security events: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*domain.Record, error) {
	var rec domain.Record
	var details []byte
	err := row.Scan(&rec.ID, &rec.HotelID, &rec.UserID, &rec.SessionID, &rec.EventType,
		&rec.Severity, &rec.Flags, &details, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &rec.Details); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}
