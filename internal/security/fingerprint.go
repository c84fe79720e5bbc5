package security

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Suspicion flags attached to sessions by drift and fingerprint checks.
const (
	FlagDifferentIPRange          = "DIFFERENT_IP_RANGE"
	FlagDifferentUserAgent        = "DIFFERENT_USER_AGENT"
	FlagFingerprintMismatch       = "FINGERPRINT_MISMATCH"
	FlagFingerprintMismatchStrict = "FINGERPRINT_MISMATCH_STRICT"
)

// ClientMetadata is the per-request client signal set used for fingerprinting
// and hijacking detection.
type ClientMetadata struct {
	UserAgent string
	IPAddress string
}

// IPRange returns the first three octets of a dotted-quad IPv4 address (a /24
// approximation of "same network"). Any input that is not four dot-separated
// octets is returned unchanged; this is best-effort and never fails.
func IPRange(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return ip
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return ip
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return ip
			}
		}
	}
	return strings.Join(parts[:3], ".")
}

// Fingerprint returns a deterministic digest of the client's User-Agent and
// IP range. The same metadata always yields the same fingerprint, so a stored
// fingerprint can be recomputed and compared on later requests.
func Fingerprint(meta ClientMetadata) string {
	sum := blake2b.Sum256([]byte(meta.UserAgent + "|" + IPRange(meta.IPAddress)))
	return hex.EncodeToString(sum[:])
}

// HashChallengeResponse returns the deterministic digest binding a response to
// its challenge. Same determinism contract as Fingerprint.
func HashChallengeResponse(challenge, response string) string {
	sum := blake2b.Sum256([]byte(challenge + "|" + response))
	return hex.EncodeToString(sum[:])
}

// FingerprintCheck is the result of VerifyFingerprint.
type FingerprintCheck struct {
	Valid           bool
	SuspiciousFlags []string
}

// VerifyFingerprint recomputes the fingerprint for meta and compares it with
// storedFingerprint. In strict mode (refresh rotation, where the bar for
// trust is higher) a mismatch is flagged FINGERPRINT_MISMATCH_STRICT.
func VerifyFingerprint(meta ClientMetadata, storedFingerprint string, strict bool) FingerprintCheck {
	if Fingerprint(meta) == storedFingerprint {
		return FingerprintCheck{Valid: true}
	}
	flag := FlagFingerprintMismatch
	if strict {
		flag = FlagFingerprintMismatchStrict
	}
	return FingerprintCheck{Valid: false, SuspiciousFlags: []string{flag}}
}

// DriftCheck is the result of a single client-drift comparison.
type DriftCheck struct {
	Valid      bool
	Suspicious bool
}

// VerifyIPRange reports whether currentIP and storedIP fall in the same /24
// range. A range change is suspicious but tolerable on its own.
func VerifyIPRange(currentIP, storedIP string) DriftCheck {
	if IPRange(currentIP) == IPRange(storedIP) {
		return DriftCheck{Valid: true}
	}
	return DriftCheck{Valid: false, Suspicious: true}
}

// VerifyUserAgent compares User-Agent strings. Identical strings match, and a
// change limited to the numeric version of the same product token (e.g.
// "Firefox/120.0" vs "Firefox/120.1") is tolerated as an auto-update. Any
// change to a product or platform name is suspicious.
func VerifyUserAgent(current, stored string) DriftCheck {
	if current == stored {
		return DriftCheck{Valid: true}
	}
	cur := strings.Fields(current)
	sto := strings.Fields(stored)
	if len(cur) != len(sto) {
		return DriftCheck{Valid: false, Suspicious: true}
	}
	for i := range cur {
		if cur[i] == sto[i] {
			continue
		}
		cn, cv, okc := splitProductToken(cur[i])
		sn, sv, oks := splitProductToken(sto[i])
		if !okc || !oks || cn != sn || !isNumericVersion(cv) || !isNumericVersion(sv) {
			return DriftCheck{Valid: false, Suspicious: true}
		}
	}
	return DriftCheck{Valid: true}
}

// ReuseCheck is the result of DetectTokenReuse.
type ReuseCheck struct {
	Detected   bool
	Suspicious bool
}

// DetectTokenReuse flags any session whose reuse counter is above zero.
func DetectTokenReuse(reuseCount int) ReuseCheck {
	if reuseCount > 0 {
		return ReuseCheck{Detected: true, Suspicious: true}
	}
	return ReuseCheck{}
}

// splitProductToken splits a "Name/version" User-Agent token.
func splitProductToken(tok string) (name, version string, ok bool) {
	i := strings.LastIndexByte(tok, '/')
	if i <= 0 || i == len(tok)-1 {
		return "", "", false
	}
	return tok[:i], tok[i+1:], true
}

func isNumericVersion(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return s != ""
}
