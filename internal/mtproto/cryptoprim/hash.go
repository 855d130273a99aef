package cryptoprim

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
)

// SHA1 returns the SHA-1 digest of data.
func SHA1(data ...[]byte) [20]byte {
	h := sha1.New()
	for _, d := range data {
		h.Write(d)
	}
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SHA256 returns the SHA-256 digest of data.
func SHA256(data ...[]byte) [32]byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ConstantTimeEqual reports whether a and b are equal using a
// constant-time comparison, avoiding timing side channels on msg_key and
// new_nonce_hash verification.
func ConstantTimeEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
