package slack

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func TestGeneratePKCECodes(t *testing.T) {
	codes, err := GeneratePKCECodes()
	if err != nil {
		t.Fatalf("GeneratePKCECodes() error = %v", err)
	}

	if len(codes.CodeVerifier) != 128 {
		t.Errorf("verifier length = %d, want 128", len(codes.CodeVerifier))
	}
	if !isAlphanumeric(codes.CodeVerifier) {
		t.Errorf("verifier contains non-alphanumeric characters: %q", codes.CodeVerifier)
	}

	// The challenge must be recomputable from the verifier alone.
	hash := sha256.Sum256([]byte(codes.CodeVerifier))
	want := base64.RawURLEncoding.EncodeToString(hash[:])
	if codes.CodeChallenge != want {
		t.Errorf("challenge = %q, want %q", codes.CodeChallenge, want)
	}
	if strings.ContainsAny(codes.CodeChallenge, "+/=") {
		t.Errorf("challenge is not base64url without padding: %q", codes.CodeChallenge)
	}
}

func TestComputeCodeChallengeDeterministic(t *testing.T) {
	verifier := strings.Repeat("a1B2", 32)
	first := ComputeCodeChallenge(verifier)
	second := ComputeCodeChallenge(verifier)
	if first != second {
		t.Errorf("challenge not deterministic: %q vs %q", first, second)
	}
}

func TestGeneratePKCECodesUnique(t *testing.T) {
	first, err := GeneratePKCECodes()
	if err != nil {
		t.Fatal(err)
	}
	second, err := GeneratePKCECodes()
	if err != nil {
		t.Fatal(err)
	}
	if first.CodeVerifier == second.CodeVerifier {
		t.Error("two generated verifiers are equal")
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	if len(state) != 32 {
		t.Errorf("state length = %d, want 32", len(state))
	}
	if !isAlphanumeric(state) {
		t.Errorf("state contains non-alphanumeric characters: %q", state)
	}

	other, err := GenerateState()
	if err != nil {
		t.Fatal(err)
	}
	if state == other {
		t.Error("two consecutive states are equal")
	}
}
