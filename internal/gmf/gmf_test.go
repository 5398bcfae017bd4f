package gmf_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsnproject/dsn-core/internal/gmf"
	"github.com/dsnproject/dsn-core/internal/prime"
	"github.com/dsnproject/dsn-core/internal/semantic"
)

func mustObject(t *testing.T, p int) *semantic.Object {
	t.Helper()
	n, err := prime.NewNoun(p)
	require.NoError(t, err)
	return semantic.New(n, nil, time.Now())
}

func TestInsertAndGetRoundTrips(t *testing.T) {
	g := gmf.New()
	obj := mustObject(t, 23)
	id := g.Insert(obj, 1.0, map[string]any{"k": "v"})
	require.Equal(t, obj.ID, id)

	e, ok := g.Get(id)
	require.True(t, ok)
	require.Equal(t, 1.0, e.Weight)
	require.False(t, e.Placeholder)
}

func TestUpdateWeightAppendsDelta(t *testing.T) {
	g := gmf.New()
	obj := mustObject(t, 29)
	id := g.Insert(obj, 1.0, nil)

	require.NoError(t, g.UpdateWeight(id, 0.5))
	e, ok := g.Get(id)
	require.True(t, ok)
	require.Equal(t, 0.5, e.Weight)

	deltas := g.GetDeltasSince(0)
	require.Len(t, deltas, 2)
	require.Equal(t, gmf.DeltaInsert, deltas[0].Kind)
	require.Equal(t, gmf.DeltaUpdateWeight, deltas[1].Kind)
}

func TestSnapshotClearsDeltaLogAndBumpsID(t *testing.T) {
	g := gmf.New()
	obj := mustObject(t, 31)
	g.Insert(obj, 1.0, nil)

	before := g.SnapshotID()
	hdr := g.Snapshot()
	require.Greater(t, hdr.ID, before)
	require.Equal(t, 1, hdr.ObjectCount)
	require.Empty(t, g.GetDeltasSince(0))
}

func TestApplyDeltasInsertCreatesPlaceholderThenRehydrates(t *testing.T) {
	src := gmf.New()
	obj := mustObject(t, 37)
	src.Insert(obj, 1.0, nil)
	deltas := src.GetDeltasSince(0)

	dst := gmf.New()
	dst.ApplyDeltas(deltas)

	e, ok := dst.Get(obj.ID)
	require.True(t, ok)
	require.True(t, e.Placeholder)
	require.Equal(t, 0.0, e.Weight)

	dst.RehydrateObject(obj, 1.0)
	e, ok = dst.Get(obj.ID)
	require.True(t, ok)
	require.False(t, e.Placeholder)
	require.Equal(t, 1.0, e.Weight)
}

func TestApplyDeltasUpdateWeightIsIdempotent(t *testing.T) {
	g := gmf.New()
	obj := mustObject(t, 41)
	id := g.Insert(obj, 1.0, nil)

	delta := gmf.Delta{Kind: gmf.DeltaUpdateWeight, ID: id, Weight: 0.2, SnapshotID: 99, Timestamp: time.Now()}
	g.ApplyDeltas([]gmf.Delta{delta})
	g.ApplyDeltas([]gmf.Delta{delta})

	e, ok := g.Get(id)
	require.True(t, ok)
	require.Equal(t, 0.2, e.Weight)
}

func TestQuerySimilarReturnsTopAboveThreshold(t *testing.T) {
	g := gmf.New()

	obj1 := mustObject(t, 2)
	g.Insert(obj1, 1.0, map[string]any{"vector": []float64{1, 0}})

	obj2 := mustObject(t, 3)
	g.Insert(obj2, 1.0, map[string]any{"vector": []float64{0, 1}})

	results := g.QuerySimilar([]float64{1, 0}, 0.5, 5)
	require.Len(t, results, 1)
	require.Equal(t, obj1.ID, results[0].ID)
}

func TestProposalLogDropsOldestOnOverflow(t *testing.T) {
	log := gmf.NewProposalLog(2)
	p1 := gmf.NewProposal("p1", mustObject(t, 2), nil, nil)
	p2 := gmf.NewProposal("p2", mustObject(t, 3), nil, nil)
	p3 := gmf.NewProposal("p3", mustObject(t, 5), nil, nil)

	require.Empty(t, log.Append(p1))
	require.Empty(t, log.Append(p2))
	dropped := log.Append(p3)
	require.Equal(t, "p1", dropped)

	_, ok := log.Get("p1")
	require.False(t, ok)
	require.Equal(t, 2, log.Len())
}

func TestProposalRedundancyAndVoteIdempotence(t *testing.T) {
	p := gmf.NewProposal("p1", mustObject(t, 2), nil, nil)
	p.RecordVote("a", true, time.Now())
	p.RecordVote("b", true, time.Now())
	p.RecordVote("c", false, time.Now())
	require.InDelta(t, 2.0/3.0, p.Redundancy(), 1e-9)

	p.RecordVote("a", false, time.Now())
	require.Len(t, p.Votes, 3)
	require.InDelta(t, 1.0/3.0, p.Redundancy(), 1e-9)
}
