// Package service implements fixed-window rate limiting over persisted
// counters, so limits hold across instances.
package service

import (
	"context"
	"math"
	"time"

	"stayhub/backend/internal/ratelimit/domain"
)

// Endpoint names with dedicated limits. Anything else gets the fallback.
const (
	EndpointLogin         = "login"
	EndpointQRValidation  = "qr_validation"
	EndpointMagicLink     = "magic_link"
	EndpointPasswordReset = "password_reset"
	EndpointWidget        = "widget"
)

const (
	DefaultRetention        = 24 * time.Hour
	DefaultCleanupBatchSize = 500
)

// Limit is one endpoint's allowance: MaxAttempts per Window.
type Limit struct {
	MaxAttempts int
	Window      time.Duration
}

// FallbackLimit applies to endpoints without a configured limit. Conservative
// on purpose: an unknown endpoint should not be the permissive one.
var FallbackLimit = Limit{MaxAttempts: 10, Window: time.Minute}

// DefaultLimits returns the per-endpoint allowance table.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		EndpointLogin:         {MaxAttempts: 5, Window: time.Minute},
		EndpointQRValidation:  {MaxAttempts: 3, Window: time.Minute},
		EndpointMagicLink:     {MaxAttempts: 5, Window: time.Minute},
		EndpointPasswordReset: {MaxAttempts: 3, Window: time.Minute},
		EndpointWidget:        {MaxAttempts: 30, Window: time.Minute},
	}
}

// DenyRateLimited is the denial code carried on blocked decisions.
const DenyRateLimited = "RATE_LIMITED"

// Decision is the outcome of a rate-limit check. Deny and RetryAfterSeconds
// are set only when blocked.
type Decision struct {
	Allowed           bool
	Deny              string
	Remaining         int
	ResetAt           time.Time
	RetryAfterSeconds int64
}

// Repo is the minimal counter store needed by the limiter.
type Repo interface {
	RecordAttempt(ctx context.Context, identifier, endpoint string, now, resetAt time.Time) (*domain.Entry, error)
	Get(ctx context.Context, identifier, endpoint string) (*domain.Entry, error)
	Delete(ctx context.Context, identifier, endpoint string) error
	DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// Limiter enforces per-(identifier, endpoint) fixed windows.
type Limiter struct {
	repo         Repo
	limits       map[string]Limit
	retention    time.Duration
	cleanupBatch int
	nowF         func() time.Time
}

// NewLimiter returns a Limiter with the given allowance table. A nil limits
// map selects DefaultLimits.
func NewLimiter(repo Repo, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Limiter{
		repo:         repo,
		limits:       limits,
		retention:    DefaultRetention,
		cleanupBatch: DefaultCleanupBatchSize,
		nowF:         func() time.Time { return time.Now().UTC() },
	}
}

// SetRetention controls how long closed windows are kept before cleanup.
// Values below zero are ignored.
func (l *Limiter) SetRetention(d time.Duration) {
	if d >= 0 {
		l.retention = d
	}
}

// SetCleanupBatchSize bounds each cleanup statement. Values below 1 are ignored.
func (l *Limiter) SetCleanupBatchSize(n int) {
	if n >= 1 {
		l.cleanupBatch = n
	}
}

func (l *Limiter) limitFor(endpoint string) Limit {
	if lim, ok := l.limits[endpoint]; ok {
		return lim
	}
	return FallbackLimit
}

// Check counts one attempt for the key and decides whether it is within the
// window's allowance. Exactly MaxAttempts calls per window are allowed.
func (l *Limiter) Check(ctx context.Context, identifier, endpoint string) (Decision, error) {
	limit := l.limitFor(endpoint)
	now := l.nowF()
	entry, err := l.repo.RecordAttempt(ctx, identifier, endpoint, now, now.Add(limit.Window))
	if err != nil {
		return Decision{}, err
	}
	if entry.Attempts > limit.MaxAttempts {
		return Decision{
			Deny:              DenyRateLimited,
			ResetAt:           entry.ResetAt,
			RetryAfterSeconds: retryAfter(now, entry.ResetAt),
		}, nil
	}
	return Decision{
		Allowed:   true,
		Remaining: limit.MaxAttempts - entry.Attempts,
		ResetAt:   entry.ResetAt,
	}, nil
}

// CheckMultiple evaluates each identifier independently and returns the most
// restrictive decision: blocked if any identifier is over its limit,
// otherwise the smallest remaining allowance. Every identifier is counted
// even when an earlier one already blocked, so attackers cannot keep one
// counter cold by tripping another.
func (l *Limiter) CheckMultiple(ctx context.Context, identifiers []string, endpoint string) (Decision, error) {
	worst := Decision{Allowed: true, Remaining: math.MaxInt}
	for _, id := range identifiers {
		d, err := l.Check(ctx, id, endpoint)
		if err != nil {
			return Decision{}, err
		}
		if !d.Allowed {
			if worst.Allowed || d.RetryAfterSeconds > worst.RetryAfterSeconds {
				worst = d
			}
			continue
		}
		if worst.Allowed && d.Remaining < worst.Remaining {
			worst = d
		}
	}
	return worst, nil
}

// Reset zeroes the counter for the key. Called after a verified success so
// users are not penalized for their own prior failures.
func (l *Limiter) Reset(ctx context.Context, identifier, endpoint string) error {
	return l.repo.Delete(ctx, identifier, endpoint)
}

// Status is a read-only snapshot: no attempt is counted. Absent or elapsed
// entries report the full allowance.
func (l *Limiter) Status(ctx context.Context, identifier, endpoint string) (Decision, error) {
	limit := l.limitFor(endpoint)
	now := l.nowF()
	entry, err := l.repo.Get(ctx, identifier, endpoint)
	if err != nil {
		return Decision{}, err
	}
	if entry == nil || entry.WindowClosed(now) {
		return Decision{Allowed: true, Remaining: limit.MaxAttempts}, nil
	}
	remaining := limit.MaxAttempts - entry.Attempts
	if remaining <= 0 {
		return Decision{
			Deny:              DenyRateLimited,
			ResetAt:           entry.ResetAt,
			RetryAfterSeconds: retryAfter(now, entry.ResetAt),
		}, nil
	}
	return Decision{Allowed: true, Remaining: remaining, ResetAt: entry.ResetAt}, nil
}

// CleanupReport holds the result of one retention sweep.
type CleanupReport struct {
	Deleted int64
	Cutoff  time.Time
}

// Cleanup deletes entries whose window closed before the retention cutoff,
// in bounded batches.
func (l *Limiter) Cleanup(ctx context.Context) (CleanupReport, error) {
	report := CleanupReport{Cutoff: l.nowF().Add(-l.retention)}
	for {
		n, err := l.repo.DeleteExpired(ctx, report.Cutoff, l.cleanupBatch)
		if err != nil {
			return report, err
		}
		report.Deleted += n
		if n < int64(l.cleanupBatch) {
			return report, nil
		}
	}
}

func retryAfter(now, resetAt time.Time) int64 {
	secs := int64(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
