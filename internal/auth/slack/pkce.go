// Package slack implements the Slack OAuth 2.0 authorization-code flow with
// PKCE (Proof Key for Code Exchange). It covers PKCE and CSRF-state
// generation, authorization URL construction, the local callback listener
// that receives the provider redirect, and the final code-for-token exchange.
// Every value produced here lives for exactly one login attempt; persistence
// is the caller's concern.
package slack

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// verifierLength is the exact length of the PKCE code verifier.
	verifierLength = 128
	// stateLength is the exact length of the CSRF state token.
	stateLength = 32
	// alphanumeric is the alphabet for verifiers and state tokens.
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// PKCECodes holds a PKCE code verifier and its derived challenge pair
// following RFC 7636 for the OAuth 2.0 PKCE extension.
type PKCECodes struct {
	// CodeVerifier is the high-entropy secret kept locally until the token
	// exchange.
	CodeVerifier string
	// CodeChallenge is the S256 challenge sent in the authorization request.
	CodeChallenge string
}

// GeneratePKCECodes generates a new PKCE code verifier and challenge pair.
// The verifier is a 128-character random alphanumeric string from a
// cryptographically secure source; the challenge is the base64url-encoded
// (no padding) SHA-256 digest of the verifier.
//
// Returns:
//   - *PKCECodes: A struct containing the code verifier and challenge
//   - error: An error if the random source fails, nil otherwise
func GeneratePKCECodes() (*PKCECodes, error) {
	codeVerifier, err := randomAlphanumeric(verifierLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	return &PKCECodes{
		CodeVerifier:  codeVerifier,
		CodeChallenge: ComputeCodeChallenge(codeVerifier),
	}, nil
}

// ComputeCodeChallenge derives the S256 code challenge for a verifier. The
// challenge is a pure function of the verifier: recomputing it from the same
// input always yields the same result.
func ComputeCodeChallenge(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateState generates a cryptographically secure random state parameter
// used as the CSRF binding between the authorization request and the
// redirect. The state is independent of the PKCE pair and unique per login
// attempt.
func GenerateState() (string, error) {
	state, err := randomAlphanumeric(stateLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return state, nil
}

// randomAlphanumeric returns a string of n characters drawn uniformly from
// the alphanumeric alphabet using crypto/rand. Rejection sampling keeps the
// distribution unbiased.
func randomAlphanumeric(n int) (string, error) {
	// Largest multiple of len(alphanumeric) that fits in a byte.
	const max = byte(248) // 62 * 4

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= max {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
