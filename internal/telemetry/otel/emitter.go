package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"stayhub/backend/internal/telemetry"
	"stayhub/backend/internal/telemetry/domain"
)

// NewEventEmitter returns an EventEmitter that sends security events as OTel
// log records via the given LoggerProvider. If provider is nil, returns a
// no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("stayhub.session_core")}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.SecurityEvent) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the security event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.SecurityEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetBody(otellog.StringValue(event.EventType))
	if event.HotelID != "" {
		rec.AddAttributes(otellog.String("hotel_id", event.HotelID))
	}
	if event.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", event.UserID))
	}
	if event.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", event.SessionID))
	}
	if event.Severity != "" {
		rec.AddAttributes(otellog.String("severity", event.Severity))
	}
	if len(event.Flags) > 0 {
		vals := make([]otellog.Value, 0, len(event.Flags))
		for _, f := range event.Flags {
			vals = append(vals, otellog.StringValue(f))
		}
		rec.AddAttributes(otellog.KeyValue{Key: "flags", Value: otellog.SliceValue(vals...)})
	}
	for k, v := range event.Details {
		rec.AddAttributes(otellog.String("detail."+k, v))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
