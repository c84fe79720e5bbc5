// Package hijack compares per-request client metadata against the metadata
// recorded when a session was issued or rotated, and grades how suspicious
// any drift is. It never mutates state; callers decide policy (log, flag, or
// hard-block) from the returned severity.
package hijack

import (
	"stayhub/backend/internal/security"
)

// Severity grades a detection result.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// StoredMetadata is the client signal set recorded at issuance or rotation.
type StoredMetadata struct {
	UserAgent   string
	IPAddress   string
	Fingerprint string
}

// Result is the outcome of Detect.
type Result struct {
	Suspicious bool
	Severity   Severity
	Flags      []string
}

// Detect evaluates each drift rule independently and unions the flags.
// strict selects the strict fingerprint variant used during refresh rotation,
// where the bar for trust is higher than for an access-token check.
//
// Severity: two or more concurrent flags are high; a lone user-agent change
// or strict fingerprint mismatch is medium; any other single flag is low.
func Detect(current security.ClientMetadata, stored StoredMetadata, strict bool) Result {
	var flags []string

	if ip := security.VerifyIPRange(current.IPAddress, stored.IPAddress); ip.Suspicious {
		flags = append(flags, security.FlagDifferentIPRange)
	}
	if ua := security.VerifyUserAgent(current.UserAgent, stored.UserAgent); ua.Suspicious {
		flags = append(flags, security.FlagDifferentUserAgent)
	}
	if fp := security.VerifyFingerprint(current, stored.Fingerprint, strict); !fp.Valid {
		flags = append(flags, fp.SuspiciousFlags...)
	}

	if len(flags) == 0 {
		return Result{}
	}
	return Result{Suspicious: true, Severity: grade(flags), Flags: flags}
}

func grade(flags []string) Severity {
	if len(flags) >= 2 {
		return SeverityHigh
	}
	switch flags[0] {
	case security.FlagDifferentUserAgent, security.FlagFingerprintMismatchStrict:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
