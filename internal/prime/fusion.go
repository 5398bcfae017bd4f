package prime

import "sort"

// CanonicalTriad reorders (p,q,r) non-decreasing and reports whether the
// result forms a valid canonical Fuse: three distinct odd primes whose sum
// is itself prime. Canonicalization is order-independent — any permutation
// of a valid triad canonicalizes to the same (p,q,r).
func CanonicalTriad(p, q, r int) (cp, cq, cr int, ok bool) {
	s := []int{p, q, r}
	sort.Ints(s)
	cp, cq, cr = s[0], s[1], s[2]
	if cp == cq || cq == cr {
		return cp, cq, cr, false
	}
	if !IsOddPrime(cp) || !IsOddPrime(cq) || !IsOddPrime(cr) {
		return cp, cq, cr, false
	}
	if !IsPrime(cp + cq + cr) {
		return cp, cq, cr, false
	}
	return cp, cq, cr, true
}

// FuseForTarget returns the smallest-lexicographic (p,q,r) with p <= q <= r,
// all odd primes, distinct, summing to target. ok is false if no such
// triad exists below target.
func FuseForTarget(target int) (p, q, r int, ok bool) {
	primes := smallOddPrimesBelow(target)
	for i := 0; i < len(primes); i++ {
		for j := i + 1; j < len(primes); j++ {
			need := target - primes[i] - primes[j]
			if need <= primes[j] {
				break
			}
			if IsOddPrime(need) {
				return primes[i], primes[j], need, true
			}
		}
	}
	return 0, 0, 0, false
}

func smallOddPrimesBelow(n int) []int {
	var out []int
	for c := 3; c < n; c += 2 {
		if IsPrime(c) {
			out = append(out, c)
		}
	}
	return out
}
