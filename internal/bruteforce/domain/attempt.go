package domain

import "time"

// Identifier types tracked by the guard. Both the account and the source
// address are tracked independently for the same login flow.
const (
	TypeEmail = "email"
	TypeIP    = "ip"
)

// Attempt is the failure record for one (identifier, identifierType,
// endpoint) key. Unlike a rate-limit window it has no natural expiry; it is
// cleared only by a verified successful authentication.
type Attempt struct {
	Identifier     string
	IdentifierType string
	Endpoint       string
	FailedAttempts int
	LastAttempt    time.Time
	IsLocked       bool
	LockedUntil    *time.Time
}

// LockActive reports whether a lockout is in force at now.
func (a *Attempt) LockActive(now time.Time) bool {
	return a.IsLocked && a.LockedUntil != nil && a.LockedUntil.After(now)
}
