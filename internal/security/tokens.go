// Package security provides the stateless credential primitives for the
// session core: secure token generation, one-way token hashing, device
// fingerprinting, and client-drift checks. Only hashes ever reach storage.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// DefaultTokenBytes is the entropy of generated tokens (256 bits).
const DefaultTokenBytes = 32

// ErrEntropy is returned when the OS random source fails.
var ErrEntropy = errors.New("security: random source failed")

// TokenPair holds two independent opaque tokens and their storable hashes.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessTokenHash  string
	RefreshTokenHash string
}

// GenerateToken returns byteLength cryptographically secure random bytes,
// hex-encoded. byteLength values below 1 fall back to DefaultTokenBytes.
func GenerateToken(byteLength int) (string, error) {
	if byteLength < 1 {
		byteLength = DefaultTokenBytes
	}
	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrEntropy, err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the SHA-256 hash of token, hex-encoded. Deterministic;
// used so that only hashes, never raw tokens, are persisted.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenHashEqual performs constant-time comparison of the provided token's
// hash with the stored hash. Returns true only if they match.
func TokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}

// GenerateTokenPair returns two independent random tokens plus their hashes.
func GenerateTokenPair() (TokenPair, error) {
	access, err := GenerateToken(DefaultTokenBytes)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := GenerateToken(DefaultTokenBytes)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessTokenHash:  HashToken(access),
		RefreshTokenHash: HashToken(refresh),
	}, nil
}

// FormatCheck is the result of ValidateTokenFormat.
type FormatCheck struct {
	Valid  bool
	Reason string
}

// ValidateTokenFormat rejects empty or non-hex token input before any lookup.
func ValidateTokenFormat(token string) FormatCheck {
	if token == "" {
		return FormatCheck{Valid: false, Reason: "token is empty"}
	}
	if _, err := hex.DecodeString(token); err != nil {
		return FormatCheck{Valid: false, Reason: "token is not hex-encoded"}
	}
	return FormatCheck{Valid: true}
}

// GenerateChallenge returns a random hex challenge for the optional
// challenge-response step.
func GenerateChallenge() (string, error) {
	return GenerateToken(DefaultTokenBytes)
}

// NewSessionID returns a new UUIDv4 session identifier.
func NewSessionID() string {
	return uuid.New().String()
}
