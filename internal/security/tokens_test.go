package security

import (
	"encoding/hex"
	"fmt"
	"testing"
)

func TestGenerateToken_LengthAndEncoding(t *testing.T) {
	tok, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if len(tok) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(tok))
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Errorf("token is not hex: %v", err)
	}
}

func TestGenerateToken_DefaultLength(t *testing.T) {
	tok, err := GenerateToken(0)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if len(tok) != DefaultTokenBytes*2 {
		t.Errorf("token length = %d, want %d", len(tok), DefaultTokenBytes*2)
	}
}

func TestGenerateToken_NoCollisions(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := GenerateToken(32)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %s", tok)
		}
		seen[tok] = true
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	a := HashToken("abc123")
	b := HashToken("abc123")
	if a != b {
		t.Errorf("HashToken not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
}

func TestHashToken_DistinctInputsDistinctOutputs(t *testing.T) {
	seen := make(map[string]string, 1000)
	for i := 0; i < 1000; i++ {
		in := fmt.Sprintf("token-%d", i)
		h := HashToken(in)
		if prev, ok := seen[h]; ok {
			t.Fatalf("collision: %q and %q both hash to %s", prev, in, h)
		}
		seen[h] = in
	}
}

func TestTokenHashEqual(t *testing.T) {
	tok, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if !TokenHashEqual(tok, HashToken(tok)) {
		t.Error("TokenHashEqual should match token against its own hash")
	}
	if TokenHashEqual(tok, HashToken("other")) {
		t.Error("TokenHashEqual should reject mismatched hash")
	}
}

func TestGenerateTokenPair(t *testing.T) {
	pair, err := GenerateTokenPair()
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Error("access and refresh tokens must be independent")
	}
	if HashToken(pair.AccessToken) != pair.AccessTokenHash {
		t.Error("AccessTokenHash does not match HashToken(AccessToken)")
	}
	if HashToken(pair.RefreshToken) != pair.RefreshTokenHash {
		t.Error("RefreshTokenHash does not match HashToken(RefreshToken)")
	}
}

func TestValidateTokenFormat(t *testing.T) {
	testCases := []struct {
		name  string
		token string
		valid bool
	}{
		{"valid hex", "deadbeef00", true},
		{"empty", "", false},
		{"non-hex", "not-a-token!", false},
		{"odd length", "abc", false},
		{"uppercase hex", "DEADBEEF", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidateTokenFormat(tc.token)
			if got.Valid != tc.valid {
				t.Errorf("ValidateTokenFormat(%q).Valid = %v, want %v (reason %q)", tc.token, got.Valid, tc.valid, got.Reason)
			}
			if !got.Valid && got.Reason == "" {
				t.Error("invalid result should carry a reason")
			}
		})
	}
}

func TestGenerateChallenge_And_HashChallengeResponse(t *testing.T) {
	ch, err := GenerateChallenge()
	if err != nil {
		t.Fatalf("GenerateChallenge: %v", err)
	}
	if len(ch) != DefaultTokenBytes*2 {
		t.Errorf("challenge length = %d, want %d", len(ch), DefaultTokenBytes*2)
	}
	h1 := HashChallengeResponse(ch, "response")
	h2 := HashChallengeResponse(ch, "response")
	if h1 != h2 {
		t.Error("HashChallengeResponse not deterministic")
	}
	if HashChallengeResponse(ch, "other") == h1 {
		t.Error("different responses should yield different digests")
	}
}

func TestNewSessionID_UUIDv4(t *testing.T) {
	id := NewSessionID()
	if len(id) != 36 {
		t.Fatalf("session id %q is not a canonical UUID", id)
	}
	if id[14] != '4' {
		t.Errorf("session id %q is not version 4", id)
	}
	if id == NewSessionID() {
		t.Error("two session ids must not collide")
	}
}
