package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stayhub/backend/internal/telemetry/domain"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []*domain.SecurityEvent
	err    error
}

func (c *captureEmitter) Emit(ctx context.Context, event *domain.SecurityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.err
}

func (c *captureEmitter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestFanout_ForwardsToAll(t *testing.T) {
	a := &captureEmitter{}
	b := &captureEmitter{}
	f := NewFanout(a, nil, b)

	ev := &domain.SecurityEvent{EventType: domain.EventTokenReuseDetected, HotelID: "h1"}
	if err := f.Emit(context.Background(), ev); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if a.count() != 1 || b.count() != 1 {
		t.Errorf("expected both emitters to receive the event, got %d and %d", a.count(), b.count())
	}
}

func TestFanout_FirstErrorWinsButAllRun(t *testing.T) {
	failing := &captureEmitter{err: errors.New("broker down")}
	ok := &captureEmitter{}
	f := NewFanout(failing, ok)

	err := f.Emit(context.Background(), &domain.SecurityEvent{EventType: domain.EventSuspiciousActivity})
	if err == nil {
		t.Fatal("expected error from failing emitter")
	}
	if ok.count() != 1 {
		t.Error("later emitters should still run after an earlier failure")
	}
}

func TestEmitAsync_NilSafe(t *testing.T) {
	// Must not panic or spawn goroutines for nil input.
	EmitAsync(nil, context.Background(), &domain.SecurityEvent{})
	EmitAsync(&captureEmitter{}, context.Background(), nil)
}

func TestEmitAsync_Delivers(t *testing.T) {
	c := &captureEmitter{}
	EmitAsync(c, context.Background(), &domain.SecurityEvent{EventType: domain.EventSessionInvalidated})

	deadline := time.Now().Add(2 * time.Second)
	for c.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("async emit did not deliver within deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
