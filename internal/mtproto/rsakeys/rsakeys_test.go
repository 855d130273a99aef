package rsakeys

import "testing"

func TestDefaultTableParses(t *testing.T) {
	if len(Default) == 0 {
		t.Fatal("Default table is empty")
	}
	for i, k := range Default {
		if k.N == nil || k.N.Sign() <= 0 {
			t.Errorf("key %d has invalid modulus", i)
		}
		if k.E != 65537 {
			t.Errorf("key %d exponent = %d, want 65537", i, k.E)
		}
		if k.Fingerprint == 0 {
			t.Errorf("key %d has zero fingerprint", i)
		}
	}
}

func TestLookupFindsKnownFingerprint(t *testing.T) {
	want := Default[0].Fingerprint
	got, ok := Lookup([]int64{int64(want)}, nil)
	if !ok {
		t.Fatal("Lookup() did not find known fingerprint")
	}
	if got.Fingerprint != want {
		t.Errorf("Lookup() fingerprint = %x, want %x", got.Fingerprint, want)
	}
}

func TestLookupMissesUnknownFingerprint(t *testing.T) {
	if _, ok := Lookup([]int64{0x1}, nil); ok {
		t.Error("Lookup() unexpectedly matched an unknown fingerprint")
	}
}
