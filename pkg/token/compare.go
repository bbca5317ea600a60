package token

import (
	"crypto/sha256"
	"crypto/subtle"
)

// Equal reports whether candidate matches stored in constant time.
//
// Both values are hashed first so the comparison runs over equal-length
// digests whatever the candidate length is. An empty stored value never
// matches.
func Equal(stored, candidate string) bool {
	if stored == "" {
		return false
	}
	a := sha256.Sum256([]byte(stored))
	b := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
