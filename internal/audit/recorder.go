// Package audit persists security events into a queryable trail.
package audit

import (
	"context"

	"github.com/google/uuid"

	auditdomain "stayhub/backend/internal/audit/domain"
	auditrepo "stayhub/backend/internal/audit/repository"
	"stayhub/backend/internal/telemetry/domain"
)

// Recorder implements telemetry.EventEmitter on top of the audit repository,
// so it can sit in the same fanout as the log and Kafka emitters.
type Recorder struct {
	repo auditrepo.Repository
}

func NewRecorder(repo auditrepo.Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Emit persists one security event. A nil repository drops events silently.
func (r *Recorder) Emit(ctx context.Context, event *domain.SecurityEvent) error {
	if r.repo == nil || event == nil {
		return nil
	}
	hotelID := event.HotelID
	if hotelID == "" {
		hotelID = auditdomain.SentinelHotelID
	}
	return r.repo.Create(ctx, &auditdomain.Record{
		ID:        uuid.New().String(),
		HotelID:   hotelID,
		UserID:    event.UserID,
		SessionID: event.SessionID,
		EventType: event.EventType,
		Severity:  event.Severity,
		Flags:     event.Flags,
		Details:   event.Details,
		CreatedAt: event.CreatedAt,
	})
}
