package domain

import "time"

// Entry is one fixed-window counter, keyed by (identifier, endpoint).
// Identifier is whatever the caller throttles on, typically a source IP or a
// submitted email. Entries self-expire; a sweep purges closed windows.
type Entry struct {
	Identifier  string
	Endpoint    string
	Attempts    int
	LastAttempt time.Time
	ResetAt     time.Time
}

// WindowClosed reports whether the entry's window has elapsed at now, meaning
// the next attempt starts a fresh window.
func (e *Entry) WindowClosed(now time.Time) bool {
	return !e.ResetAt.After(now)
}
