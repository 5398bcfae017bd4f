package field

import "time"

// Specialize reweights the vector so primary-axis components keep their
// magnitude scaled by strength (clamped to [0,1]) and non-primary
// components keep theirs scaled by 1-strength; every component takes a
// deterministic sign alternating by index (+ even, - odd), then renormalizes
// (spec.md §4.C). Calling Specialize recomputes entropy, since a more
// specialized vector concentrates mass on fewer axes and therefore has
// lower Shannon entropy.
func (f *Field) Specialize(strength float64) {
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	isPrimary := make(map[int]bool, len(f.primaryAxes))
	for _, a := range f.primaryAxes {
		isPrimary[a] = true
	}

	for i := range f.vector {
		sign := 1.0
		if i%2 == 1 {
			sign = -1.0
		}
		mag := axisMagnitude(f.vector[i])
		if isPrimary[i] {
			f.vector[i] = strength * sign * mag
		} else {
			f.vector[i] = (1 - strength) * sign * mag
		}
	}
	normalize(f.vector)
	f.entropy = shannonEntropy(f.vector)
	f.lastUpdate = time.Now()
}

// axisMagnitude returns |v|, falling back to 1 when v is exactly zero so a
// previously-unweighted axis still receives mass under specialization
// instead of staying permanently silent.
func axisMagnitude(v float64) float64 {
	if v == 0 {
		return 1
	}
	if v < 0 {
		return -v
	}
	return v
}
