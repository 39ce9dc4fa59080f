package services

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// FingerprintSize is the digest length in bytes (128 bits).
const FingerprintSize = 16

// Fingerprint returns a stable 32-character hex digest of data. It is a cache
// key, not a security boundary.
func Fingerprint(data []byte) string {
	h, err := blake2b.New(FingerprintSize, nil)
	if err != nil {
		// Only reachable with an invalid size or key.
		panic(err)
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
