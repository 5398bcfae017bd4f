package field

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// Observe blends an incoming vector into the field at weight alpha ∈
// [0,1] (alpha=1 replaces the field with observed; alpha=0 ignores it),
// renormalizes, and records a Trace against id. Coherence is updated to
// the cosine similarity between the field's prior orientation and the
// observed vector: consistent observations keep coherence high, a
// divergent one pulls it down.
func (f *Field) Observe(id string, observed []float64, alpha float64, ts time.Time) {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	sim := cosineSimilarity(f.vector, observed)
	f.coherence = sim

	blended := make([]float64, Dimension)
	for i := range blended {
		var ov float64
		if i < len(observed) {
			ov = observed[i]
		}
		blended[i] = (1-alpha)*f.vector[i] + alpha*ov
	}
	normalize(blended)
	f.vector = blended
	f.entropy = shannonEntropy(f.vector)
	f.lastUpdate = ts

	f.memory[id] = Trace{
		ObjectID:  id,
		Vector:    append([]float64(nil), observed...),
		Weight:    alpha,
		Timestamp: ts,
	}
}

// Trace returns the recorded trace for id, if any.
func (f *Field) Trace(id string) (Trace, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	tr, ok := f.memory[id]
	return tr, ok
}

// Forget removes id's trace, e.g. after GMF snapshot compaction drops the
// corresponding entry.
func (f *Field) Forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.memory, id)
}

// MemorySize returns how many traces are currently retained.
func (f *Field) MemorySize() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.memory)
}

// cosineSimilarity computes the cosine of the angle between a and b,
// padding the shorter vector with zeros. Returns 0 for a zero-magnitude
// vector rather than dividing by zero.
func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	pa := make([]float64, n)
	pb := make([]float64, n)
	copy(pa, a)
	copy(pb, b)

	na := floats.Norm(pa, 2)
	nb := floats.Norm(pb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(pa, pb) / (na * nb)
}

// CosineSimilarity exposes cosineSimilarity for callers outside the
// package (the GMF's querySimilar operation, spec.md §4.G).
func CosineSimilarity(a, b []float64) float64 {
	return cosineSimilarity(a, b)
}
