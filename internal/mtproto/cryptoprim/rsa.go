package cryptoprim

import "math/big"

// RSARawEncrypt computes data^e mod n and returns the result as a
// big-endian byte slice exactly outSize bytes long (left-padded with
// zeros). The caller is responsible for composing the payload (the
// handshake prepends SHA-1(inner) and random padding before calling
// this) — there is no PKCS#1 padding here, matching MTProto's own
// RSA-without-padding construction.
func RSARawEncrypt(data []byte, n *big.Int, e int64, outSize int) []byte {
	m := new(big.Int).SetBytes(data)
	c := new(big.Int).Exp(m, big.NewInt(e), n)

	out := make([]byte, outSize)
	cb := c.Bytes()
	copy(out[outSize-len(cb):], cb)
	return out
}
