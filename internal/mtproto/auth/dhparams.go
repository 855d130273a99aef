package auth

import (
	"errors"
	"math/big"
)

// minDHRangeBits is the exponent in the [2^1984, dh_prime - 2^1984]
// range check applied to g_a and g_b, per the protocol's documented
// defense against small-subgroup attacks.
const minDHRangeBits = 1984

var (
	errDHPrimeNotSafe   = errors.New("auth: dh_prime is not a safe prime")
	errDHPrimeWrongSize = errors.New("auth: dh_prime is not 2048 bits")
	errGeneratorInvalid = errors.New("auth: g is not an acceptable generator for dh_prime")
	errGOutOfRange      = errors.New("auth: g_a/g_b is out of the required range")
)

// validateDHPrime checks that p is a 2048-bit safe prime: p is prime and
// (p-1)/2 is also prime.
func validateDHPrime(p *big.Int) error {
	if p.BitLen() != 2048 {
		return errDHPrimeWrongSize
	}
	if !p.ProbablyPrime(32) {
		return errDHPrimeNotSafe
	}
	q := new(big.Int).Sub(p, big.NewInt(1))
	q.Rsh(q, 1)
	if !q.ProbablyPrime(32) {
		return errDHPrimeNotSafe
	}
	return nil
}

// validateGenerator checks that g is one of {2,...,7} and satisfies the
// quadratic-residue condition against dh_prime required for g to
// generate the order-(p-1)/2 subgroup:
//
//	g=2: p mod 8 == 7
//	g=3: p mod 3 == 2
//	g=4: always valid (4 is a perfect square)
//	g=5: p mod 5 in {1, 4}
//	g=6: p mod 24 in {19, 23}
//	g=7: p mod 7 in {3, 5, 6}
func validateGenerator(g int32, dhPrime *big.Int) error {
	mod := func(n int64) int64 {
		return new(big.Int).Mod(dhPrime, big.NewInt(n)).Int64()
	}

	switch g {
	case 2:
		if mod(8) == 7 {
			return nil
		}
	case 3:
		if mod(3) == 2 {
			return nil
		}
	case 4:
		return nil
	case 5:
		if m := mod(5); m == 1 || m == 4 {
			return nil
		}
	case 6:
		if m := mod(24); m == 19 || m == 23 {
			return nil
		}
	case 7:
		if m := mod(7); m == 3 || m == 5 || m == 6 {
			return nil
		}
	}
	return errGeneratorInvalid
}

// validateDHRange checks that value lies in [2^minDHRangeBits, dh_prime
// - 2^minDHRangeBits], the range both g_a and g_b must satisfy.
func validateDHRange(value, dhPrime *big.Int) error {
	lower := new(big.Int).Lsh(big.NewInt(1), minDHRangeBits)
	upper := new(big.Int).Sub(dhPrime, lower)

	if value.Cmp(lower) < 0 || value.Cmp(upper) > 0 {
		return errGOutOfRange
	}
	return nil
}
