package jobs

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

const hashLen = 16

// Hash computes the dedup identity of a posting from its company and title.
// The same logical posting scraped from different platforms collides on
// purpose. The digest is truncated: at hundreds to low thousands of records
// 16 hex characters are collision-resistant enough.
func Hash(company, title string) string {
	normalized := normalize(company) + "|" + normalize(title)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// normalize lowercases, strips punctuation and collapses whitespace so that
// "Acme Inc." and "acme inc" hash identically.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
