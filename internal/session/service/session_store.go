// Package service implements the session lifecycle: issuance, validation,
// refresh rotation with reuse detection, revocation, and expiry cleanup.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stayhub/backend/internal/hijack"
	"stayhub/backend/internal/security"
	"stayhub/backend/internal/session/domain"
	"stayhub/backend/internal/telemetry"
	telemetrydomain "stayhub/backend/internal/telemetry/domain"
)

// Defaults applied when NewSessionStore receives non-positive TTLs or batch size.
const (
	DefaultAccessTTL        = 10 * time.Minute
	DefaultRefreshTTL       = 720 * time.Hour // 30d
	DefaultCleanupBatchSize = 500
)

// Repo is the minimal session repository needed by the store.
type Repo interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSessionByID(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByAccessTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	ListActiveByUserAndHotel(ctx context.Context, userID, hotelID string) ([]*domain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	MarkInactive(ctx context.Context, sessionID string) error
	RecordActivity(ctx context.Context, sessionID string, at time.Time, newFlags []string) error
	SwapAccessToken(ctx context.Context, sessionID, accessTokenHash string, expiresAt, at time.Time) error
	IncrementReuseCount(ctx context.Context, sessionID string) error
	DeactivateExpiredSessions(ctx context.Context, cutoff time.Time, limit int) (int64, error)
	CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	MarkRefreshTokenRotated(ctx context.Context, tokenID string, at time.Time, nextTokenHash string) (bool, error)
	RevokeSessionRefreshTokens(ctx context.Context, sessionID string, at time.Time) error
	DeleteExpiredRefreshTokens(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// RequestMetadata carries the client signals presented with a request.
// HotelID is the tenant context; when set, a session belonging to a different
// hotel is denied TENANT_MISMATCH regardless of token validity.
type RequestMetadata struct {
	UserAgent string
	IPAddress string
	HotelID   string
}

func (m RequestMetadata) client() security.ClientMetadata {
	return security.ClientMetadata{UserAgent: m.UserAgent, IPAddress: m.IPAddress}
}

// CreateParams seeds a new session from an already-verified login.
type CreateParams struct {
	UserID    string
	HotelID   string
	Role      string
	UserAgent string
	IPAddress string
}

// Created is the result of issuing a session. Raw tokens appear here once and
// are never persisted.
type Created struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Validation is the outcome of an access-token check. Deny is set exactly
// when Valid is false.
type Validation struct {
	Valid     bool
	Deny      domain.DenyReason
	SessionID string
	UserID    string
	HotelID   string
	Role      string
	Flags     []string
	Severity  hijack.Severity
}

// Rotation is the outcome of a refresh exchange. Deny is set exactly when
// Rotated is false; on REUSE_DETECTED the whole session has been invalidated.
type Rotation struct {
	Rotated             bool
	Deny                domain.DenyReason
	SessionID           string
	NewAccessToken      string
	NewRefreshToken     string
	NewAccessTokenHash  string
	NewRefreshTokenHash string
	ExpiresAt           time.Time
	Flags               []string
	Severity            hijack.Severity
}

// CleanupReport holds counts from one expiry sweep, for observability.
type CleanupReport struct {
	RefreshTokensDeleted int64
	SessionsDeactivated  int64
}

// SessionStore implements the session-security core. All state lives in the
// shared store, so it is safe across request handlers and instances.
type SessionStore struct {
	repo         Repo
	events       telemetry.EventEmitter
	accessTTL    time.Duration
	refreshTTL   time.Duration
	cleanupBatch int
	nowF         func() time.Time
}

// NewSessionStore returns a SessionStore with the given dependencies.
// events may be nil; security incidents are then not emitted.
func NewSessionStore(repo Repo, events telemetry.EventEmitter, accessTTL, refreshTTL time.Duration) *SessionStore {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &SessionStore{
		repo:         repo,
		events:       events,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		cleanupBatch: DefaultCleanupBatchSize,
		nowF:         func() time.Time { return time.Now().UTC() },
	}
}

// SetCleanupBatchSize bounds each cleanup statement. Values below 1 are ignored.
func (s *SessionStore) SetCleanupBatchSize(n int) {
	if n >= 1 {
		s.cleanupBatch = n
	}
}

// Create issues a new session and its first refresh token for a verified
// (userId, hotelId, role) triple. There is no suspicion check on creation:
// nothing has been recorded yet to compare against.
func (s *SessionStore) Create(ctx context.Context, p CreateParams) (Created, error) {
	pair, err := security.GenerateTokenPair()
	if err != nil {
		return Created{}, err
	}
	now := s.nowF()
	sess := &domain.Session{
		ID:                     security.NewSessionID(),
		UserID:                 p.UserID,
		HotelID:                p.HotelID,
		Role:                   p.Role,
		CurrentAccessTokenHash: pair.AccessTokenHash,
		UserAgent:              p.UserAgent,
		IPAddress:              p.IPAddress,
		IPRange:                security.IPRange(p.IPAddress),
		DeviceFingerprint:      security.Fingerprint(security.ClientMetadata{UserAgent: p.UserAgent, IPAddress: p.IPAddress}),
		CreatedAt:              now,
		ExpiresAt:              now.Add(s.accessTTL),
		LastActivityAt:         now,
		IsActive:               true,
		SuspiciousFlags:        []string{},
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return Created{}, err
	}
	first := &domain.RefreshToken{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		TokenHash: pair.RefreshTokenHash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.repo.CreateRefreshToken(ctx, first); err != nil {
		return Created{}, err
	}
	return Created{
		SessionID:    sess.ID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

// Validate checks an access token. Suspicion alone never fails a validate;
// drift flags are accumulated on the session and reported to the caller,
// which decides policy. Expiry flips the session inactive as a side effect.
func (s *SessionStore) Validate(ctx context.Context, accessToken string, meta RequestMetadata) (Validation, error) {
	if f := security.ValidateTokenFormat(accessToken); !f.Valid {
		return Validation{Deny: domain.DenyInvalidFormat}, nil
	}
	sess, err := s.repo.GetSessionByAccessTokenHash(ctx, security.HashToken(accessToken))
	if err != nil {
		return Validation{}, err
	}
	if sess == nil {
		return Validation{Deny: domain.DenyNotFound}, nil
	}
	if !sess.IsActive {
		return Validation{Deny: domain.DenyInactive}, nil
	}
	now := s.nowF()
	if sess.Expired(now) {
		if err := s.repo.MarkInactive(ctx, sess.ID); err != nil {
			return Validation{}, err
		}
		return Validation{Deny: domain.DenyExpired}, nil
	}
	if meta.HotelID != "" && meta.HotelID != sess.HotelID {
		return Validation{Deny: domain.DenyTenantMismatch}, nil
	}

	det := hijack.Detect(meta.client(), hijack.StoredMetadata{
		UserAgent:   sess.UserAgent,
		IPAddress:   sess.IPAddress,
		Fingerprint: sess.DeviceFingerprint,
	}, false)
	if err := s.repo.RecordActivity(ctx, sess.ID, now, det.Flags); err != nil {
		return Validation{}, err
	}
	if det.Severity == hijack.SeverityHigh {
		s.emit(ctx, sess, telemetrydomain.EventSuspiciousActivity, det)
	}

	return Validation{
		Valid:     true,
		SessionID: sess.ID,
		UserID:    sess.UserID,
		HotelID:   sess.HotelID,
		Role:      sess.Role,
		Flags:     det.Flags,
		Severity:  det.Severity,
	}, nil
}

// Rotate exchanges a live refresh token for a fresh pair. Presenting an
// already-rotated token, or losing the conditional write to a concurrent
// rotation, is treated as theft: the whole session is invalidated and
// REUSE_DETECTED returned. That response is unconditional.
func (s *SessionStore) Rotate(ctx context.Context, refreshToken string, meta RequestMetadata) (Rotation, error) {
	if f := security.ValidateTokenFormat(refreshToken); !f.Valid {
		return Rotation{Deny: domain.DenyInvalidFormat}, nil
	}
	tok, err := s.repo.GetRefreshTokenByHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		return Rotation{}, err
	}
	if tok == nil {
		return Rotation{Deny: domain.DenyNotFound}, nil
	}
	sess, err := s.repo.GetSessionByID(ctx, tok.SessionID)
	if err != nil {
		return Rotation{}, err
	}
	if sess == nil {
		return Rotation{Deny: domain.DenyNotFound}, nil
	}
	if meta.HotelID != "" && meta.HotelID != sess.HotelID {
		return Rotation{Deny: domain.DenyTenantMismatch}, nil
	}
	if tok.RevokedAt != nil || !sess.IsActive {
		return Rotation{Deny: domain.DenyInactive}, nil
	}
	now := s.nowF()
	if tok.Expired(now) {
		return Rotation{Deny: domain.DenyExpired}, nil
	}
	if tok.RotatedAt != nil {
		return s.handleReuse(ctx, sess, now)
	}

	pair, err := security.GenerateTokenPair()
	if err != nil {
		return Rotation{}, err
	}
	won, err := s.repo.MarkRefreshTokenRotated(ctx, tok.ID, now, pair.RefreshTokenHash)
	if err != nil {
		return Rotation{}, err
	}
	if !won {
		// A concurrent rotation consumed this token first; same as reuse.
		return s.handleReuse(ctx, sess, now)
	}

	successor := &domain.RefreshToken{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		TokenHash: pair.RefreshTokenHash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.repo.CreateRefreshToken(ctx, successor); err != nil {
		return Rotation{}, err
	}
	accessExp := now.Add(s.accessTTL)
	if err := s.repo.SwapAccessToken(ctx, sess.ID, pair.AccessTokenHash, accessExp, now); err != nil {
		return Rotation{}, err
	}

	// Rotation is a trust escalation, so drift checks run strict. Flags are
	// accumulated without blocking the rotation.
	det := hijack.Detect(meta.client(), hijack.StoredMetadata{
		UserAgent:   sess.UserAgent,
		IPAddress:   sess.IPAddress,
		Fingerprint: sess.DeviceFingerprint,
	}, true)
	if err := s.repo.RecordActivity(ctx, sess.ID, now, det.Flags); err != nil {
		return Rotation{}, err
	}
	if det.Severity == hijack.SeverityHigh {
		s.emit(ctx, sess, telemetrydomain.EventSuspiciousActivity, det)
	}

	return Rotation{
		Rotated:             true,
		SessionID:           sess.ID,
		NewAccessToken:      pair.AccessToken,
		NewRefreshToken:     pair.RefreshToken,
		NewAccessTokenHash:  pair.AccessTokenHash,
		NewRefreshTokenHash: pair.RefreshTokenHash,
		ExpiresAt:           accessExp,
		Flags:               det.Flags,
		Severity:            det.Severity,
	}, nil
}

// handleReuse is the fail-secure response to a second presentation of an
// already-exchanged refresh token: revoke the whole chain, kill the session,
// and surface the incident. No new tokens are issued.
func (s *SessionStore) handleReuse(ctx context.Context, sess *domain.Session, now time.Time) (Rotation, error) {
	if err := s.repo.IncrementReuseCount(ctx, sess.ID); err != nil {
		return Rotation{}, err
	}
	if err := s.repo.RevokeSessionRefreshTokens(ctx, sess.ID, now); err != nil {
		return Rotation{}, err
	}
	if err := s.repo.MarkInactive(ctx, sess.ID); err != nil {
		return Rotation{}, err
	}
	telemetry.EmitAsync(s.events, ctx, &telemetrydomain.SecurityEvent{
		HotelID:   sess.HotelID,
		UserID:    sess.UserID,
		SessionID: sess.ID,
		EventType: telemetrydomain.EventTokenReuseDetected,
		Severity:  string(hijack.SeverityHigh),
		CreatedAt: now,
	})
	return Rotation{Deny: domain.DenyReuseDetected, SessionID: sess.ID}, nil
}

// Invalidate soft-destroys a session and revokes its whole refresh chain.
// Idempotent: invalidating an unknown or already-inactive session is a no-op success.
func (s *SessionStore) Invalidate(ctx context.Context, sessionID string) error {
	sess, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	now := s.nowF()
	if err := s.repo.RevokeSessionRefreshTokens(ctx, sessionID, now); err != nil {
		return err
	}
	if !sess.IsActive {
		return nil
	}
	if err := s.repo.MarkInactive(ctx, sessionID); err != nil {
		return err
	}
	telemetry.EmitAsync(s.events, ctx, &telemetrydomain.SecurityEvent{
		HotelID:   sess.HotelID,
		UserID:    sess.UserID,
		SessionID: sess.ID,
		EventType: telemetrydomain.EventSessionInvalidated,
		CreatedAt: now,
	})
	return nil
}

// InvalidateAllUserSessions invalidates every active session of the user
// across all devices ("log out everywhere"). Returns the count invalidated.
func (s *SessionStore) InvalidateAllUserSessions(ctx context.Context, userID string) (int, error) {
	sessions, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, sess := range sessions {
		if err := s.Invalidate(ctx, sess.ID); err != nil {
			return 0, err
		}
	}
	return len(sessions), nil
}

// GetUserActiveSessions lists the user's active sessions scoped to the hotel,
// for a "manage devices" surface.
func (s *SessionStore) GetUserActiveSessions(ctx context.Context, userID, hotelID string) ([]*domain.Session, error) {
	return s.repo.ListActiveByUserAndHotel(ctx, userID, hotelID)
}

// VerifyOwnership reports whether the session exists and belongs to exactly
// this user and hotel. Mandatory guard before any session-scoped mutation:
// knowing a session ID must never allow cross-tenant or cross-user access.
func (s *SessionStore) VerifyOwnership(ctx context.Context, sessionID, userID, hotelID string) (bool, error) {
	sess, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}
	return sess.UserID == userID && sess.HotelID == hotelID, nil
}

// CleanupExpiredSessions deletes refresh tokens past expiry and bulk-marks
// expired sessions inactive, in bounded batches so interactive validate and
// rotate calls are never starved. Runs outside the request path.
func (s *SessionStore) CleanupExpiredSessions(ctx context.Context) (CleanupReport, error) {
	now := s.nowF()
	var report CleanupReport
	for {
		n, err := s.repo.DeleteExpiredRefreshTokens(ctx, now, s.cleanupBatch)
		if err != nil {
			return report, err
		}
		report.RefreshTokensDeleted += n
		if n < int64(s.cleanupBatch) {
			break
		}
	}
	for {
		n, err := s.repo.DeactivateExpiredSessions(ctx, now, s.cleanupBatch)
		if err != nil {
			return report, err
		}
		report.SessionsDeactivated += n
		if n < int64(s.cleanupBatch) {
			break
		}
	}
	return report, nil
}

func (s *SessionStore) emit(ctx context.Context, sess *domain.Session, eventType string, det hijack.Result) {
	telemetry.EmitAsync(s.events, ctx, &telemetrydomain.SecurityEvent{
		HotelID:   sess.HotelID,
		UserID:    sess.UserID,
		SessionID: sess.ID,
		EventType: eventType,
		Severity:  string(det.Severity),
		Flags:     det.Flags,
		CreatedAt: s.nowF(),
	})
}
