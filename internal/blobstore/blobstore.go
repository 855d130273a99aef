// Package blobstore persists an EncryptedSession's snapshot blob (§6.4)
// to disk between runs, optionally encrypting it at rest with an
// operator-supplied passphrase so a stolen data directory alone does not
// hand over a live auth key.
package blobstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	plainMagic     byte = 0x01
	encryptedMagic byte = 0x02
)

// Save writes snapshot to path. When passphrase is non-empty the
// snapshot is sealed with AES-256-GCM under a key derived from the
// passphrase; otherwise it is written as-is with a one-byte plain marker.
func Save(path string, snapshot []byte, passphrase string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("blobstore: create directory: %w", err)
		}
	}

	if passphrase == "" {
		out := append([]byte{plainMagic}, snapshot...)
		return writeAtomic(path, out)
	}

	gcm, err := cipherFor(passphrase)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("blobstore: generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, snapshot, nil)
	out := append([]byte{encryptedMagic}, sealed...)
	return writeAtomic(path, out)
}

// Load reads and, if sealed, decrypts the snapshot blob at path.
func Load(path string, passphrase string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("blobstore: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("blobstore: empty blob at %s", path)
	}

	marker, body := data[0], data[1:]
	switch marker {
	case plainMagic:
		return body, nil
	case encryptedMagic:
		if passphrase == "" {
			return nil, fmt.Errorf("blobstore: %s is passphrase-protected", path)
		}
		gcm, err := cipherFor(passphrase)
		if err != nil {
			return nil, err
		}
		if len(body) < gcm.NonceSize() {
			return nil, fmt.Errorf("blobstore: truncated blob at %s", path)
		}
		nonce, ciphertext := body[:gcm.NonceSize()], body[gcm.NonceSize():]
		snapshot, err := gcm.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return nil, fmt.Errorf("blobstore: decrypt %s: wrong passphrase or corrupt blob", path)
		}
		return snapshot, nil
	default:
		return nil, fmt.Errorf("blobstore: unrecognized blob format at %s", path)
	}
}

// Exists reports whether a blob file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// cipherFor derives a 256-bit key from passphrase via SHA-256. A
// dedicated password KDF (scrypt/argon2) would be preferable against
// offline brute-force, but none of the libraries already wired into
// this module offer one; see DESIGN.md for why this stays on the
// standard library instead of pulling in a KDF-only dependency for a
// single call site.
func cipherFor(passphrase string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("blobstore: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("blobstore: create gcm: %w", err)
	}
	return gcm, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("blobstore: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("blobstore: rename temp file: %w", err)
	}
	return nil
}
