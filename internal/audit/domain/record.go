package domain

import "time"

// SentinelHotelID is used for records that have no tenant, e.g. a lockout
// tripped before the account's hotel is known.
const SentinelHotelID = "_system"

// Record is one persisted security event. Unlike the log/Kafka emitters this
// trail is queryable, for support and incident review.
type Record struct {
	ID        string
	HotelID   string
	UserID    string
	SessionID string
	EventType string
	Severity  string
	Flags     []string
	Details   map[string]string
	CreatedAt time.Time
}
