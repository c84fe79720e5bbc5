// Package service implements the brute-force guard: a longer-memory
// companion to the rate limiter, tracking an identity rather than a time
// window. Failure counts survive across windows and are cleared only by a
// verified successful authentication.
package service

import (
	"context"
	"math"
	"strconv"
	"time"

	"stayhub/backend/internal/bruteforce/domain"
	"stayhub/backend/internal/telemetry"
	telemetrydomain "stayhub/backend/internal/telemetry/domain"
)

const (
	DefaultThreshold        = 5
	DefaultLockoutDuration  = 10 * time.Minute
	DefaultRetention        = 24 * time.Hour
	DefaultCleanupBatchSize = 500
)

// DenyLockedOut is the denial code carried on locked results.
const DenyLockedOut = "LOCKED_OUT"

// Result is the outcome of recording one failure. Allowed reports whether
// further attempts may proceed; Deny and LockoutRemainingSeconds are set
// while locked.
type Result struct {
	Allowed                 bool
	IsLocked                bool
	Deny                    string
	FailedAttempts          int
	LockoutRemainingSeconds int64
}

// Repo is the minimal failure store needed by the guard.
type Repo interface {
	Increment(ctx context.Context, identifier, identifierType, endpoint string, at time.Time) (*domain.Attempt, error)
	Lock(ctx context.Context, identifier, identifierType, endpoint string, until time.Time) error
	Clear(ctx context.Context, identifier, identifierType string) error
	DeleteStale(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// Guard enforces escalating lockouts per (identifier, identifierType,
// endpoint).
type Guard struct {
	repo         Repo
	events       telemetry.EventEmitter
	threshold    int
	lockout      time.Duration
	retention    time.Duration
	cleanupBatch int
	nowF         func() time.Time
}

// NewGuard returns a Guard locking after threshold failures for the given
// duration. Non-positive values select the defaults. events may be nil.
func NewGuard(repo Repo, events telemetry.EventEmitter, threshold int, lockout time.Duration) *Guard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if lockout <= 0 {
		lockout = DefaultLockoutDuration
	}
	return &Guard{
		repo:         repo,
		events:       events,
		threshold:    threshold,
		lockout:      lockout,
		retention:    DefaultRetention,
		cleanupBatch: DefaultCleanupBatchSize,
		nowF:         func() time.Time { return time.Now().UTC() },
	}
}

// SetRetention controls how long idle, unlocked records are kept before
// cleanup. Values below zero are ignored.
func (g *Guard) SetRetention(d time.Duration) {
	if d >= 0 {
		g.retention = d
	}
}

// SetCleanupBatchSize bounds each cleanup statement. Values below 1 are ignored.
func (g *Guard) SetCleanupBatchSize(n int) {
	if n >= 1 {
		g.cleanupBatch = n
	}
}

// RecordFailedAttempt counts one failure. Reaching the threshold locks the
// key for the lockout duration; further failures while locked keep reporting
// the remaining time without extending it. Once an expired lock is left
// behind, the persisted count immediately re-locks on the next failure.
func (g *Guard) RecordFailedAttempt(ctx context.Context, identifier, identifierType, endpoint string) (Result, error) {
	now := g.nowF()
	a, err := g.repo.Increment(ctx, identifier, identifierType, endpoint, now)
	if err != nil {
		return Result{}, err
	}
	if a.LockActive(now) {
		return Result{
			IsLocked:                true,
			Deny:                    DenyLockedOut,
			FailedAttempts:          a.FailedAttempts,
			LockoutRemainingSeconds: remainingSeconds(now, *a.LockedUntil),
		}, nil
	}
	if a.FailedAttempts >= g.threshold {
		until := now.Add(g.lockout)
		if err := g.repo.Lock(ctx, identifier, identifierType, endpoint, until); err != nil {
			return Result{}, err
		}
		telemetry.EmitAsync(g.events, ctx, &telemetrydomain.SecurityEvent{
			EventType: telemetrydomain.EventLockoutTriggered,
			Severity:  "high",
			Details: map[string]string{
				"identifier":      identifier,
				"identifier_type": identifierType,
				"endpoint":        endpoint,
				"failed_attempts": strconv.Itoa(a.FailedAttempts),
			},
			CreatedAt: now,
		})
		return Result{
			IsLocked:                true,
			Deny:                    DenyLockedOut,
			FailedAttempts:          a.FailedAttempts,
			LockoutRemainingSeconds: remainingSeconds(now, until),
		}, nil
	}
	return Result{Allowed: true, FailedAttempts: a.FailedAttempts}, nil
}

// ClearFailedAttempts resets the identifier's counters and lockouts across
// all endpoints. Call only after a verified successful authentication.
func (g *Guard) ClearFailedAttempts(ctx context.Context, identifier, identifierType string) error {
	return g.repo.Clear(ctx, identifier, identifierType)
}

// CleanupReport holds the result of one retention sweep.
type CleanupReport struct {
	Deleted int64
	Cutoff  time.Time
}

// Cleanup removes records idle past the retention cutoff, in bounded
// batches. Active lockouts are never removed.
func (g *Guard) Cleanup(ctx context.Context) (CleanupReport, error) {
	report := CleanupReport{Cutoff: g.nowF().Add(-g.retention)}
	for {
		n, err := g.repo.DeleteStale(ctx, report.Cutoff, g.cleanupBatch)
		if err != nil {
			return report, err
		}
		report.Deleted += n
		if n < int64(g.cleanupBatch) {
			return report, nil
		}
	}
}

func remainingSeconds(now, until time.Time) int64 {
	secs := int64(math.Ceil(until.Sub(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
