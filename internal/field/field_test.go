package field_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/dsnproject/dsn-core/internal/field"
)

func TestNewProducesUnitVectorAndValidDomain(t *testing.T) {
	f := field.New("node-a")
	snap := f.Snapshot()
	require.Len(t, snap.Vector, field.Dimension)
	require.InDelta(t, 1.0, floats.Norm(snap.Vector, 2), 1e-9)

	valid := false
	for _, d := range field.Domains {
		if d == snap.SemanticDomain {
			valid = true
		}
	}
	require.True(t, valid)
	require.Equal(t, 1.0, snap.Coherence)
}

func TestNewIsDeterministicPerNodeID(t *testing.T) {
	a := field.New("same-id")
	b := field.New("same-id")
	require.Equal(t, a.Vector(), b.Vector())
}

func TestEntropyWithinBoundsForUnitVector(t *testing.T) {
	f := field.New("node-b")
	e := f.Entropy()
	require.GreaterOrEqual(t, e, 0.0)
	require.LessOrEqual(t, e, 2.77)
}

func TestSpecializeRenormalizesAndLowersEntropyForConcentratedVector(t *testing.T) {
	f := field.New("node-c")
	before := f.Entropy()
	f.Specialize(0.95)
	after := f.Entropy()
	snap := f.Snapshot()
	require.InDelta(t, 1.0, floats.Norm(snap.Vector, 2), 1e-9)
	require.Less(t, after, before+1e-9)
}

func TestObserveUpdatesCoherenceAndMemory(t *testing.T) {
	f := field.New("node-d")
	v := f.Vector()

	// Observing the field's own vector is maximally coherent.
	f.Observe("obj-1", v, 0.5, time.Now())
	require.InDelta(t, 1.0, f.Coherence(), 1e-6)
	tr, ok := f.Trace("obj-1")
	require.True(t, ok)
	require.Equal(t, "obj-1", tr.ObjectID)
	require.Equal(t, 1, f.MemorySize())

	f.Forget("obj-1")
	require.Equal(t, 0, f.MemorySize())
}

func TestObserveOppositeVectorLowersCoherence(t *testing.T) {
	f := field.New("node-e")
	v := f.Vector()
	opposite := make([]float64, len(v))
	for i, x := range v {
		opposite[i] = -x
	}
	f.Observe("obj-2", opposite, 0.1, time.Now())
	require.InDelta(t, -1.0, f.Coherence(), 1e-6)
}

func TestCosineSimilarityOrthogonalIsZero(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	require.InDelta(t, 0, field.CosineSimilarity(a, b), 1e-9)
}
