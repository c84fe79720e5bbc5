package domain

import "time"

// DenyReason is the closed set of expected authentication-flow outcomes.
// These are returned as values, never as errors; persistence faults propagate
// separately so callers can tell a denied credential from a broken store.
type DenyReason string

const (
	DenyNotFound       DenyReason = "NOT_FOUND"
	DenyExpired        DenyReason = "EXPIRED"
	DenyInactive       DenyReason = "INACTIVE"
	DenyTenantMismatch DenyReason = "TENANT_MISMATCH"
	DenyReuseDetected  DenyReason = "REUSE_DETECTED"
	DenyInvalidFormat  DenyReason = "INVALID_FORMAT"
)

// Session represents one logged-in device/browser for a user within a hotel.
// Only token hashes are stored, never raw tokens.
type Session struct {
	ID                     string
	UserID                 string
	HotelID                string
	Role                   string
	CurrentAccessTokenHash string
	UserAgent              string
	IPAddress              string
	IPRange                string // derived /24 approximation
	DeviceFingerprint      string
	CreatedAt              time.Time
	ExpiresAt              time.Time // access-token expiry, short TTL
	LastActivityAt         time.Time
	IsActive               bool
	TokenReuseCount        int
	SuspiciousFlags        []string
}

// Expired reports whether the session's access window has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// RefreshToken is one link in a session's rotation chain. At most one token
// per session is live (RotatedAt and RevokedAt both nil); all others are
// terminal. NextTokenHash points at the successor's hash once rotated, which
// lets reuse be detected without ever storing plaintext.
type RefreshToken struct {
	ID            string
	SessionID     string
	TokenHash     string
	CreatedAt     time.Time
	ExpiresAt     time.Time // long TTL, days
	RevokedAt     *time.Time
	RotatedAt     *time.Time
	NextTokenHash string // empty until rotated
}

// Live reports whether the token can still be exchanged: never rotated,
// never revoked.
func (t *RefreshToken) Live() bool {
	return t.RotatedAt == nil && t.RevokedAt == nil
}

// Expired reports whether the token's validity window has passed at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
