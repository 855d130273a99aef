package cryptoprim

import (
	"errors"
	"math/big"
)

// ErrFactorizationBudget is returned when Factorize exhausts its
// iteration and restart budget without finding a nontrivial factor. The
// server's pq is guaranteed (by the protocol) to be a product of two
// primes, so this indicates either a hostile/misbehaving server or a
// pathologically unlucky sequence of Pollard's-rho restarts.
var ErrFactorizationBudget = errors.New("cryptoprim: factorization budget exhausted")

// MaxIterationsPerAttempt bounds a single Pollard's rho attempt before it
// is abandoned and restarted with a fresh random seed.
const MaxIterationsPerAttempt = 10_000_000

// MaxRestarts bounds the number of fresh-seed restarts before Factorize
// gives up. Chosen per the handshake's documented budget: generous
// enough that a single unlucky cycle never fails a legitimate handshake.
const MaxRestarts = 16

// Factorize splits pq into its two prime factors p < q using Pollard's
// rho algorithm with Brent's cycle-detection improvement, restarting
// with a fresh random seed on failure. rng supplies the randomness so
// tests can pin a seed and reproduce a deterministic factorization path.
func Factorize(pq uint64, rng RandomSource) (p, q uint64, err error) {
	if pq < 4 {
		return 0, 0, errors.New("cryptoprim: pq too small to factor")
	}
	if pq%2 == 0 {
		return 2, pq / 2, nil
	}

	for restart := 0; restart < MaxRestarts; restart++ {
		c := uint64(1 + rng.Uint64()%(pq-1))
		x0 := rng.Uint64() % pq

		d, ok := brentAttempt(pq, c, x0, MaxIterationsPerAttempt)
		if ok && d != pq && d > 1 {
			p1, p2 := d, pq/d
			if p1 > p2 {
				p1, p2 = p2, p1
			}
			return p1, p2, nil
		}
	}

	return 0, 0, ErrFactorizationBudget
}

// brentAttempt runs one Pollard's-rho-with-Brent cycle-detection attempt
// against n, seeded with (c, x0), bounded to maxIter polynomial
// evaluations. It returns a nontrivial divisor of n, or ok=false if the
// budget was exhausted or the cycle collapsed to a trivial divisor.
func brentAttempt(n, c, x0 uint64, maxIter int) (uint64, bool) {
	const batch = 128

	x := x0
	y := x0
	d := uint64(1)
	r := uint64(1)
	q := uint64(1)
	var ys uint64

	iter := 0
	for d == 1 {
		x = y
		for i := uint64(0); i < r; i++ {
			y = polyMod(y, c, n)
			iter++
			if iter > maxIter {
				return 0, false
			}
		}

		k := uint64(0)
		for k < r && d == 1 {
			ys = y
			steps := batch
			if remaining := r - k; uint64(steps) > remaining {
				steps = int(remaining)
			}
			for i := 0; i < steps; i++ {
				y = polyMod(y, c, n)
				q = mulMod(q, absDiffU64(x, y), n)
				iter++
				if iter > maxIter {
					return 0, false
				}
			}
			d = gcdU64(q, n)
			k += uint64(steps)
		}
		r *= 2
	}

	if d == n {
		for {
			ys = polyMod(ys, c, n)
			d = gcdU64(absDiffU64(x, ys), n)
			iter++
			if d > 1 {
				break
			}
			if iter > maxIter {
				return 0, false
			}
		}
	}

	if d == n {
		return 0, false
	}
	return d, true
}

// polyMod evaluates f(x) = (x*x + c) mod n.
func polyMod(x, c, n uint64) uint64 {
	bx := new(big.Int).SetUint64(x)
	r := new(big.Int).Mul(bx, bx)
	r.Add(r, new(big.Int).SetUint64(c))
	r.Mod(r, new(big.Int).SetUint64(n))
	return r.Uint64()
}

// mulMod computes a*b mod n without overflowing 64 bits.
func mulMod(a, b, n uint64) uint64 {
	r := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	r.Mod(r, new(big.Int).SetUint64(n))
	return r.Uint64()
}

func absDiffU64(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func gcdU64(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
