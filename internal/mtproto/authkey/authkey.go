// Package authkey implements the MTProto-specified derivation that turns
// a (new_nonce, server_nonce) pair and the Diffie-Hellman shared secret
// into the session's 256-byte auth key, its id, and the session's first
// salt. It is pure, deterministic math with no I/O of its own — the
// Authorization state machine in internal/mtproto/auth owns the DH
// exchange and calls into this package at the right points.
package authkey

import (
	"encoding/binary"
	"math/big"

	"github.com/postalsys/mtproto-session/internal/mtproto/cryptoprim"
)

// AuxHashes is the SHA-1 chain computed from (new_nonce, server_nonce)
// that the DH-answer encryption and client_DH_inner_data encryption both
// key off. See §4.2.
type AuxHashes struct {
	AESKey [32]byte
	AESIV  [32]byte
}

// DeriveAux computes the aes_key/aes_iv pair that encrypts
// server_DH_inner_data and client_DH_inner_data, per:
//
//	t1 = SHA1(new_nonce || server_nonce)
//	t2 = SHA1(server_nonce || new_nonce)
//	t3 = SHA1(new_nonce || new_nonce)
//	aes_key = t1 || t2[0:12]
//	aes_iv  = t2[12:20] || t3 || new_nonce[0:4]
func DeriveAux(newNonce, serverNonce [16]byte) AuxHashes {
	t1 := cryptoprim.SHA1(newNonce[:], serverNonce[:])
	t2 := cryptoprim.SHA1(serverNonce[:], newNonce[:])
	t3 := cryptoprim.SHA1(newNonce[:], newNonce[:])

	var aux AuxHashes
	copy(aux.AESKey[0:20], t1[:])
	copy(aux.AESKey[20:32], t2[0:12])
	copy(aux.AESIV[0:8], t2[12:20])
	copy(aux.AESIV[8:28], t3[:])
	copy(aux.AESIV[28:32], newNonce[0:4])
	return aux
}

// AuthKeyFromSharedSecret renders the DH shared secret gab as the
// 256-byte big-endian auth key, left-padded with zeros.
func AuthKeyFromSharedSecret(gab *big.Int) [256]byte {
	var authKey [256]byte
	b := gab.Bytes()
	copy(authKey[256-len(b):], b)
	return authKey
}

// FirstSalt computes new_nonce[0:8] XOR server_nonce[0:8], interpreted as
// a little-endian i64.
func FirstSalt(newNonce, serverNonce [16]byte) int64 {
	var xored [8]byte
	for i := 0; i < 8; i++ {
		xored[i] = newNonce[i] ^ serverNonce[i]
	}
	return int64(binary.LittleEndian.Uint64(xored[:]))
}

// ID returns the auth_key_id: the low 64 bits of SHA1(auth_key), read as
// little-endian.
func ID(authKey [256]byte) uint64 {
	sum := cryptoprim.SHA1(authKey[:])
	return binary.LittleEndian.Uint64(sum[12:20])
}

// AuxHash returns SHA1(auth_key)[0:8] as a little-endian uint64, the
// aux_hash fed into the dh_gen_ok/_retry/_fail verification in §4.3 step 4.
func AuxHash(authKey [256]byte) uint64 {
	sum := cryptoprim.SHA1(authKey[:])
	return binary.LittleEndian.Uint64(sum[0:8])
}

// NewNonceHash computes SHA1(new_nonce || marker || aux_hash_bytes)[4:20]
// where marker distinguishes dh_gen_ok (1), dh_gen_retry (2), and
// dh_gen_fail (3), per §4.3 step 4.
func NewNonceHash(newNonce [16]byte, marker byte, authKey [256]byte) [16]byte {
	var auxHashBytes [8]byte
	binary.LittleEndian.PutUint64(auxHashBytes[:], AuxHash(authKey))

	sum := cryptoprim.SHA1(newNonce[:], []byte{marker}, auxHashBytes[:])
	var out [16]byte
	copy(out[:], sum[4:20])
	return out
}
