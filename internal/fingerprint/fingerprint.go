// Package fingerprint computes the deterministic content keys used by the
// store to deduplicate quotes and listeners.
//
// A fingerprint is the lowercase hex SHA-256 digest of the content. Quote text
// is normalized first (Unicode NFC, trimmed, internal whitespace collapsed to
// single spaces) so that cosmetically different submissions of the same text
// map to one key. Listener contact values are hashed as-is; they are validated
// to be digits only before they ever reach this package.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Size is the length in characters of every fingerprint.
const Size = sha256.Size * 2

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// Normalize returns the canonical form of s used for quote fingerprints.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Raw hashes s without any normalization.
func Raw(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Text hashes the normalized form of s.
func Text(s string) string { return Raw(Normalize(s)) }
