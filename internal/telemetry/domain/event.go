package domain

import "time"

// Event types emitted by the session core.
const (
	EventTokenReuseDetected = "session.token_reuse_detected"
	EventSuspiciousActivity = "session.suspicious_activity"
	EventSessionInvalidated = "session.invalidated"
	EventLockoutTriggered   = "auth.lockout_triggered"
)

// SecurityEvent represents a security incident or suspicion signal
// (hotel-scoped, optional user/session). Serialized as JSON on the wire.
type SecurityEvent struct {
	HotelID   string            `json:"hotel_id"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	EventType string            `json:"event_type"`
	Severity  string            `json:"severity,omitempty"`
	Flags     []string          `json:"flags,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
