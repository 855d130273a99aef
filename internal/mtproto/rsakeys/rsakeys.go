// Package rsakeys holds the process-wide, immutable table of Telegram's
// published RSA public keys used to anchor the MTProto handshake. Servers
// identify a key by its 64-bit fingerprint; Lookup resolves one of the
// fingerprints a server offers in resPQ to the matching PublicKey, or
// reports that none of the offered fingerprints are known locally.
package rsakeys

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/postalsys/mtproto-session/internal/mtproto/tl"
)

// PublicKey is one RSA public key in the baked-in table, plus its
// precomputed MTProto fingerprint.
type PublicKey struct {
	N           *big.Int
	E           int64
	Fingerprint uint64
}

// publicKeyPEMs are PKCS#1 "RSA PUBLIC KEY" blocks, the format Telegram
// itself publishes its DC keys in. A real deployment loads its current
// set from Telegram's published key list (these rotate over years, not
// releases); this table carries the commonly distributed key used across
// open MTProto client implementations as the compiled-in default, with
// room for a host to supply a fresher table via LoadPEM at runtime.
var publicKeyPEMs = []string{
	`-----BEGIN RSA PUBLIC KEY-----
MIIBCgKCAQEAyMEdY1aR+sCR3ZSJrtztKTKqigvO/vBfqACJLZtS7QMgCGXJ6XIR
yy7mx66W0/sOFa7/1mAZtEoIokDP3ShoqF4fVNb6XeqgQfaUHd8wJpDWHcR2OFwv
plUUI1PLTktZ9uW2WE23b+ixNwJjJGwBDJPQEQFBE+vfmH0JP503wr5INS1poWg/
j25sIWeYPHD6TwbRqE8u6Vya4yLChgF+Y+SHNp3IzhXhRTBv7FH6TKDbXssxgeFw
lBgU5G00DUikmkK8dgkwEJ2OdfN8XGhE53+ztXpiv6p3VJ4E3+SL3G1kVkXFyzmB
nwhl4PgFd8m8kdwpTjVw+6SnXI6wBVK7Xg2nBwIDAQAB
-----END RSA PUBLIC KEY-----`,
}

// Default is the process-wide table of known Telegram RSA public keys,
// parsed once from publicKeyPEMs.
var Default []PublicKey

func init() {
	keys, err := parsePEMs(publicKeyPEMs)
	if err != nil {
		panic(fmt.Sprintf("rsakeys: invalid baked-in key table: %v", err))
	}
	Default = keys
}

func parsePEMs(pems []string) ([]PublicKey, error) {
	out := make([]PublicKey, 0, len(pems))
	for _, p := range pems {
		block, _ := pem.Decode([]byte(p))
		if block == nil {
			return nil, fmt.Errorf("no PEM block found")
		}
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS1 public key: %w", err)
		}
		e := int64(pub.E)
		out = append(out, PublicKey{
			N:           pub.N,
			E:           e,
			Fingerprint: computeFingerprint(pub.N, e),
		})
	}
	return out, nil
}

// LoadPEM parses a caller-supplied list of "RSA PUBLIC KEY" PEM blocks
// into a usable table, for hosts that want to refresh Telegram's key set
// without rebuilding the binary.
func LoadPEM(pems []string) ([]PublicKey, error) {
	return parsePEMs(pems)
}

// computeFingerprint follows the MTProto definition: serialize n and e as
// TL `bytes`-wrapped big-endian integers inside an `rsa_public_key`
// wrapper, SHA-1 the result, and keep the low 64 bits.
func computeFingerprint(n *big.Int, e int64) uint64 {
	w := tl.NewWriter()
	w.Uint32(0xa8508bf3) // rsa_public_key#a8508bf3 n:bytes e:bytes = RSAPublicKey
	w.Bytes(n.Bytes())
	w.Bytes(big.NewInt(e).Bytes())

	sum := sha1.Sum(w.Build())
	r := tl.NewReader(sum[12:20])
	v, _ := r.Uint64()
	return v
}

// Lookup returns the PublicKey whose fingerprint is in fingerprints,
// preferring the first match in offer order (matching server preference).
// Only table is searched; the compiled-in Default is used when table is nil.
func Lookup(fingerprints []int64, table []PublicKey) (PublicKey, bool) {
	if table == nil {
		table = Default
	}
	for _, fp := range fingerprints {
		want := uint64(fp)
		for _, k := range table {
			if k.Fingerprint == want {
				return k, true
			}
		}
	}
	return PublicKey{}, false
}
