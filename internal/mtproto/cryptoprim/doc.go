// Package cryptoprim implements the primitives the MTProto session core
// builds on: AES-IGE, SHA-1/SHA-256, raw RSA encryption (no padding
// beyond what the handshake composes itself), and Pollard's rho
// factorization of the server's 64-bit pq product. General-purpose
// crypto plumbing (the AES block cipher, SHA implementations, big.Int
// modular exponentiation) comes from the standard library; AES-IGE and
// the factorization loop are hand-rolled because MTProto is the only
// consumer of either.
package cryptoprim
