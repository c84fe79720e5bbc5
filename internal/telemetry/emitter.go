// Package telemetry surfaces security events from the session core to
// observability backends (OTel logs, Kafka). Emission is best-effort and must
// never change the outcome of the authentication flow that produced the event.
package telemetry

import (
	"context"

	"stayhub/backend/internal/telemetry/domain"
)

// EventEmitter emits security events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.SecurityEvent) error
}
