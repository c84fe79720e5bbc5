package hijack

import (
	"testing"

	"stayhub/backend/internal/security"
)

func stored(ua, ip string) StoredMetadata {
	return StoredMetadata{
		UserAgent:   ua,
		IPAddress:   ip,
		Fingerprint: security.Fingerprint(security.ClientMetadata{UserAgent: ua, IPAddress: ip}),
	}
}

func TestDetect_NoDrift(t *testing.T) {
	got := Detect(
		security.ClientMetadata{UserAgent: "Firefox/120.0", IPAddress: "192.168.1.42"},
		stored("Firefox/120.0", "192.168.1.42"),
		false,
	)
	if got.Suspicious || len(got.Flags) != 0 {
		t.Errorf("unchanged metadata should not be suspicious, got %+v", got)
	}
}

func TestDetect_SameRangeIPChurn(t *testing.T) {
	// A different host in the same /24 keeps the fingerprint stable.
	got := Detect(
		security.ClientMetadata{UserAgent: "Firefox/120.0", IPAddress: "192.168.1.99"},
		stored("Firefox/120.0", "192.168.1.42"),
		false,
	)
	if got.Suspicious {
		t.Errorf("same-range IP churn should not be suspicious, got %+v", got)
	}
}

func TestDetect_UAVersionDrift_LowViaFingerprint(t *testing.T) {
	// A tolerated browser update still changes the combined fingerprint,
	// which surfaces as a single low-severity flag.
	got := Detect(
		security.ClientMetadata{UserAgent: "Firefox/120.1", IPAddress: "192.168.1.42"},
		stored("Firefox/120.0", "192.168.1.42"),
		false,
	)
	if !got.Suspicious {
		t.Fatalf("expected fingerprint flag, got %+v", got)
	}
	if len(got.Flags) != 1 || got.Flags[0] != security.FlagFingerprintMismatch {
		t.Errorf("flags = %v, want only FINGERPRINT_MISMATCH", got.Flags)
	}
	if got.Severity != SeverityLow {
		t.Errorf("severity = %v, want low", got.Severity)
	}
}

func TestDetect_DifferentIPRange_High(t *testing.T) {
	// A network change also changes the fingerprint: two flags, high severity.
	got := Detect(
		security.ClientMetadata{UserAgent: "Firefox/120.0", IPAddress: "10.0.0.1"},
		stored("Firefox/120.0", "192.168.1.42"),
		false,
	)
	if !got.Suspicious || got.Severity != SeverityHigh {
		t.Fatalf("expected high severity, got %+v", got)
	}
	want := map[string]bool{
		security.FlagDifferentIPRange:    true,
		security.FlagFingerprintMismatch: true,
	}
	if len(got.Flags) != 2 {
		t.Fatalf("flags = %v, want 2", got.Flags)
	}
	for _, f := range got.Flags {
		if !want[f] {
			t.Errorf("unexpected flag %q", f)
		}
	}
}

func TestDetect_BrowserChange_High(t *testing.T) {
	got := Detect(
		security.ClientMetadata{UserAgent: "Chrome/121.0", IPAddress: "192.168.1.42"},
		stored("Firefox/120.0", "192.168.1.42"),
		false,
	)
	if got.Severity != SeverityHigh {
		t.Errorf("browser change should be high severity, got %+v", got)
	}
	found := false
	for _, f := range got.Flags {
		if f == security.FlagDifferentUserAgent {
			found = true
		}
	}
	if !found {
		t.Errorf("flags = %v, want DIFFERENT_USER_AGENT present", got.Flags)
	}
}

func TestDetect_StrictFlagDuringRotation(t *testing.T) {
	got := Detect(
		security.ClientMetadata{UserAgent: "Firefox/120.1", IPAddress: "192.168.1.42"},
		stored("Firefox/120.0", "192.168.1.42"),
		true,
	)
	if len(got.Flags) != 1 || got.Flags[0] != security.FlagFingerprintMismatchStrict {
		t.Fatalf("flags = %v, want only FINGERPRINT_MISMATCH_STRICT", got.Flags)
	}
	if got.Severity != SeverityMedium {
		t.Errorf("severity = %v, want medium", got.Severity)
	}
}

func TestDetect_EverythingDiffers(t *testing.T) {
	got := Detect(
		security.ClientMetadata{UserAgent: "curl/8.5.0", IPAddress: "203.0.113.9"},
		stored("Firefox/120.0", "192.168.1.42"),
		true,
	)
	if got.Severity != SeverityHigh || len(got.Flags) != 3 {
		t.Errorf("full drift should union all three flags at high severity, got %+v", got)
	}
}
