// AES-IGE (Infinite Garble Extension) is MTProto's chosen block cipher
// mode. It is not part of the standard library or golang.org/x/crypto
// (neither ships IGE — it is essentially unique to MTProto), so unlike
// every other primitive in this package it is implemented directly on
// top of crypto/aes's raw block cipher rather than wired to a library.
package cryptoprim

import (
	"crypto/aes"
	"errors"
)

// ErrInvalidBlockLength is returned when plaintext/ciphertext is not a
// multiple of the AES block size.
var ErrInvalidBlockLength = errors.New("cryptoprim: input length not a multiple of the AES block size")

// ErrInvalidIVLength is returned when the IV is not exactly two AES
// blocks (32 bytes: the previous-ciphertext half and previous-plaintext
// half IGE chains on).
var ErrInvalidIVLength = errors.New("cryptoprim: IV must be 32 bytes")

const blockSize = aes.BlockSize // 16

// AESIGEEncrypt encrypts plain with AES-256 in IGE mode. key must be 32
// bytes, iv must be 32 bytes (iv[0:16] seeds the "previous ciphertext"
// chain, iv[16:32] seeds the "previous plaintext" chain). len(plain) must
// be a multiple of 16.
func AESIGEEncrypt(plain, key, iv []byte) ([]byte, error) {
	if len(plain)%blockSize != 0 {
		return nil, ErrInvalidBlockLength
	}
	if len(iv) != 2*blockSize {
		return nil, ErrInvalidIVLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	prevCipher := append([]byte(nil), iv[:blockSize]...)
	prevPlain := append([]byte(nil), iv[blockSize:]...)

	out := make([]byte, len(plain))
	var tmp [blockSize]byte

	for off := 0; off < len(plain); off += blockSize {
		p := plain[off : off+blockSize]

		xorInto(tmp[:], p, prevCipher)
		block.Encrypt(tmp[:], tmp[:])
		xorInto(tmp[:], tmp[:], prevPlain)

		copy(out[off:off+blockSize], tmp[:])

		prevCipher = append([]byte(nil), tmp[:]...)
		prevPlain = append([]byte(nil), p...)
	}

	return out, nil
}

// AESIGEDecrypt decrypts cipher with AES-256 in IGE mode, the inverse of
// AESIGEEncrypt with the same key/iv convention.
func AESIGEDecrypt(cipher, key, iv []byte) ([]byte, error) {
	if len(cipher)%blockSize != 0 {
		return nil, ErrInvalidBlockLength
	}
	if len(iv) != 2*blockSize {
		return nil, ErrInvalidIVLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	prevCipher := append([]byte(nil), iv[:blockSize]...)
	prevPlain := append([]byte(nil), iv[blockSize:]...)

	out := make([]byte, len(cipher))
	var tmp [blockSize]byte

	for off := 0; off < len(cipher); off += blockSize {
		c := cipher[off : off+blockSize]

		xorInto(tmp[:], c, prevPlain)
		block.Decrypt(tmp[:], tmp[:])
		xorInto(tmp[:], tmp[:], prevCipher)

		copy(out[off:off+blockSize], tmp[:])

		prevCipher = append([]byte(nil), c...)
		prevPlain = append([]byte(nil), tmp[:]...)
	}

	return out, nil
}

func xorInto(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}
