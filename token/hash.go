package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hash returns the hex-encoded SHA-256 digest of tok. Only this digest is
// ever persisted; the plaintext token leaves the process once, at issuance.
func Hash(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether candidate hashes to storedHash. The comparison is
// constant time with respect to the digest contents.
func Verify(candidate, storedHash string) bool {
	h := Hash(candidate)
	if len(h) != len(storedHash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(h), []byte(storedHash)) == 1
}
