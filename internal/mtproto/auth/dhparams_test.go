package auth

import (
	"math/big"
	"testing"
)

func group14Prime(t *testing.T) *big.Int {
	t.Helper()
	p, ok := new(big.Int).SetString(dhPrimeGroup14Hex, 16)
	if !ok {
		t.Fatalf("failed to parse fixture prime")
	}
	return p
}

func TestValidateDHPrimeAcceptsGroup14(t *testing.T) {
	if err := validateDHPrime(group14Prime(t)); err != nil {
		t.Fatalf("expected group14 prime to validate, got %v", err)
	}
}

func TestValidateDHPrimeRejectsWrongSize(t *testing.T) {
	small := big.NewInt(23) // prime, but nowhere near 2048 bits
	if err := validateDHPrime(small); err != errDHPrimeWrongSize {
		t.Fatalf("got %v, want errDHPrimeWrongSize", err)
	}
}

func TestValidateDHPrimeRejectsComposite(t *testing.T) {
	p := group14Prime(t)
	composite := new(big.Int).Xor(p, big.NewInt(1)) // flip the low bit, breaking primality
	if err := validateDHPrime(composite); err == nil {
		t.Fatalf("expected a flipped-bit value to fail validation")
	}
}

func TestValidateGeneratorG2(t *testing.T) {
	p := group14Prime(t)
	if err := validateGenerator(2, p); err != nil {
		t.Fatalf("g=2 should validate against group14 prime: %v", err)
	}
}

func TestValidateGeneratorRejectsOutOfSet(t *testing.T) {
	p := group14Prime(t)
	if err := validateGenerator(9, p); err != errGeneratorInvalid {
		t.Fatalf("got %v, want errGeneratorInvalid", err)
	}
}

func TestValidateGeneratorRejectsMismatchedResidue(t *testing.T) {
	// Pick a prime that is 3 mod 8 so g=2's condition (p mod 8 == 7) fails.
	p := big.NewInt(11) // 11 mod 8 == 3
	if err := validateGenerator(2, p); err != errGeneratorInvalid {
		t.Fatalf("got %v, want errGeneratorInvalid", err)
	}
}

func TestValidateDHRangeAcceptsMidpoint(t *testing.T) {
	p := group14Prime(t)
	mid := new(big.Int).Rsh(p, 1)
	if err := validateDHRange(mid, p); err != nil {
		t.Fatalf("midpoint should be in range: %v", err)
	}
}

func TestValidateDHRangeRejectsTooSmall(t *testing.T) {
	p := group14Prime(t)
	if err := validateDHRange(big.NewInt(2), p); err != errGOutOfRange {
		t.Fatalf("got %v, want errGOutOfRange", err)
	}
}

func TestValidateDHRangeRejectsTooLarge(t *testing.T) {
	p := group14Prime(t)
	tooLarge := new(big.Int).Sub(p, big.NewInt(1))
	if err := validateDHRange(tooLarge, p); err != errGOutOfRange {
		t.Fatalf("got %v, want errGOutOfRange", err)
	}
}
