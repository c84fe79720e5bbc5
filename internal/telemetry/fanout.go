package telemetry

import (
	"context"

	"stayhub/backend/internal/telemetry/domain"
)

// Fanout emits each event to every configured emitter. Nil emitters are
// skipped; the first error is returned after all emitters have been tried.
type Fanout struct {
	emitters []EventEmitter
}

// NewFanout returns an emitter that forwards to all of emitters (e.g. OTel
// logs plus the Kafka security topic).
func NewFanout(emitters ...EventEmitter) *Fanout {
	out := make([]EventEmitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return &Fanout{emitters: out}
}

// Emit forwards event to every emitter, returning the first error seen.
func (f *Fanout) Emit(ctx context.Context, event *domain.SecurityEvent) error {
	var firstErr error
	for _, e := range f.emitters {
		if err := e.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
