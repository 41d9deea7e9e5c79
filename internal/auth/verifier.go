// Package auth implements the gateway's credential verifier. Verification is
// binary: every rejection looks identical to the caller, and comparisons do
// not leak timing or length information.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
	"sync/atomic"
)

// Mode selects which credential checks must pass.
type Mode string

const (
	// ModeToken accepts a matching bearer token.
	ModeToken Mode = "token"
	// ModeSecret accepts a matching shared-secret header.
	ModeSecret Mode = "secret"
	// ModeEither accepts if the token or the secret check passes.
	ModeEither Mode = "either"
	// ModeBoth requires both checks to pass.
	ModeBoth Mode = "both"
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeToken, ModeSecret, ModeEither, ModeBoth:
		return true
	}
	return false
}

// Credentials is the accepted credential set for one verifier generation.
type Credentials struct {
	Mode         Mode
	BearerTokens []string
	SharedSecret string
}

// Verifier evaluates presented credentials against the configured policy.
// The credential set is swappable at runtime (secret rotation) without
// affecting in-flight checks.
type Verifier struct {
	creds atomic.Pointer[Credentials]
}

// NewVerifier creates a verifier over the given credential set.
func NewVerifier(c Credentials) *Verifier {
	v := &Verifier{}
	v.creds.Store(&c)
	return v
}

// Swap atomically replaces the accepted credential set.
func (v *Verifier) Swap(c Credentials) {
	v.creds.Store(&c)
}

// Verify checks the presented Authorization header and shared-secret header
// value. Missing and wrong credentials are indistinguishable in the result.
func (v *Verifier) Verify(authorization, secretValue string) bool {
	c := v.creds.Load()

	token := bearerToken(authorization)
	// Scan every configured token so the comparison count does not depend
	// on which token matched.
	tokenOK := 0
	for _, want := range c.BearerTokens {
		tokenOK |= constantTimeEqual(token, want)
	}
	if token == "" {
		tokenOK = 0
	}
	secretOK := 0
	if secretValue != "" && c.SharedSecret != "" {
		secretOK = constantTimeEqual(secretValue, c.SharedSecret)
	}

	switch c.Mode {
	case ModeToken:
		return tokenOK == 1
	case ModeSecret:
		return secretOK == 1
	case ModeEither:
		return tokenOK|secretOK == 1
	case ModeBoth:
		return tokenOK&secretOK == 1
	}
	return false
}

// bearerToken extracts the token from "Bearer <token>", empty otherwise.
func bearerToken(authorization string) string {
	parts := strings.Fields(authorization)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// constantTimeEqual compares two secrets in constant time without revealing length:
// both sides are reduced to fixed-size digests before comparison.
func constantTimeEqual(got, want string) int {
	g := sha256.Sum256([]byte(got))
	w := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(g[:], w[:])
}
