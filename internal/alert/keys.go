package alert

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// foldKeyPart lower-cases and trims an identity field for key derivation.
func foldKeyPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// collapseSpace trims s and collapses internal runs of whitespace to single
// spaces, so summaries differing only in spacing share a fingerprint.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DedupeKey returns the content fingerprint used by the dedupe store: a
// sha256 over the folded identity tuple joined by "|", which none of the
// identifier charsets admit. Tags are deliberately not part of the identity.
func (a *Alert) DedupeKey() string {
	parts := []string{
		foldKeyPart(a.Service),
		foldKeyPart(a.Environment),
		foldKeyPart(a.ErrorCode),
		foldKeyPart(a.Resource),
		collapseSpace(a.Summary),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// RateLimitKey returns the rate-limit bucket key, service|error_code folded.
func (a *Alert) RateLimitKey() string {
	return foldKeyPart(a.Service) + "|" + foldKeyPart(a.ErrorCode)
}
