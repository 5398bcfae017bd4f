package syncer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsnproject/dsn-core/internal/config"
	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/gmf"
	"github.com/dsnproject/dsn-core/internal/logging"
	"github.com/dsnproject/dsn-core/internal/prime"
	"github.com/dsnproject/dsn-core/internal/semantic"
	"github.com/dsnproject/dsn-core/internal/syncer"
	"github.com/dsnproject/dsn-core/internal/transport"
)

func newTestNode(t *testing.T, id string, opts ...config.Option) *syncer.Node {
	t.Helper()
	cfg := config.New(opts...)
	return syncer.New(id, "mesh", nil, 0, cfg, logging.NoOp(), nil)
}

// connectPair wires a and b together over a fresh in-process transport
// pair and joins both sides, mirroring the handshake + snapshot catch-up
// every mesh edge performs (spec.md §4.H).
func connectPair(t *testing.T, a, b *syncer.Node) {
	t.Helper()
	ctx := context.Background()
	ta := transport.NewInProcessTransport(32, logging.NoOp())
	tb := transport.NewInProcessTransport(32, logging.NoOp())
	transport.Pair(ta, tb)
	require.NoError(t, b.Join(ctx, a.NodeID(), tb, a.Store()))
	require.NoError(t, a.Join(ctx, b.NodeID(), ta, b.Store()))

	require.Eventually(t, func() bool {
		pa, oka := a.Channel().Peer(b.NodeID())
		pb, okb := b.Channel().Peer(a.NodeID())
		return oka && pa.Connected && okb && pb.Connected
	}, time.Second, time.Millisecond)
}

func waitForEvent(t *testing.T, ch <-chan events.Event, timeout time.Duration) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func subscribeAll(bus *events.Bus, kinds ...events.Kind) <-chan events.Event {
	ch := make(chan events.Event, 16)
	for _, k := range kinds {
		bus.Subscribe(k, func(e events.Event) { ch <- e })
	}
	return ch
}

// TestProposalAcceptedOnAgreement mirrors spec.md §8 seeding scenario 3: a
// three-node mesh where A submits Noun(23) and both peers vote agree ends
// with A's GMF holding id(Noun(23)) at weight 1.0.
func TestProposalAcceptedOnAgreement(t *testing.T) {
	a := newTestNode(t, "A", config.WithVotingQuorum(2))
	b := newTestNode(t, "B", config.WithVotingQuorum(2))
	c := newTestNode(t, "C", config.WithVotingQuorum(2))
	connectPair(t, a, b)
	connectPair(t, a, c)

	accepted := subscribeAll(a.Events(), syncer.EventProposalAccepted)

	term, err := prime.NewNoun(23)
	require.NoError(t, err)
	p := a.Submit(context.Background(), term, nil, nil)

	ctx := context.Background()
	require.NoError(t, b.Channel().SendVote(ctx, "A", p.ID, true))
	require.NoError(t, c.Channel().SendVote(ctx, "A", p.ID, true))

	e := waitForEvent(t, accepted, 2*time.Second)
	require.Equal(t, p.ID, e.Data)

	wantID := semantic.IDFromSignature(term.Signature())
	entry, ok := a.Store().Get(wantID)
	require.True(t, ok)
	require.Equal(t, 1.0, entry.Weight)
	require.False(t, entry.Placeholder)
}

// TestProposalRejectedOnInsufficientRedundancy mirrors seeding scenario 4:
// one agree, one disagree, quorum never reached by count, so the deadline
// fires finalize on the votes in hand, and they fall below the default
// redundancy threshold.
func TestProposalRejectedOnInsufficientRedundancy(t *testing.T) {
	a := newTestNode(t, "A", config.WithVoteDeadline(50*time.Millisecond))
	b := newTestNode(t, "B", config.WithVoteDeadline(50*time.Millisecond))
	c := newTestNode(t, "C", config.WithVoteDeadline(50*time.Millisecond))
	connectPair(t, a, b)
	connectPair(t, a, c)

	rejected := subscribeAll(a.Events(), syncer.EventProposalRejected)

	term, err := prime.NewNoun(23)
	require.NoError(t, err)
	p := a.Submit(context.Background(), term, nil, nil)

	ctx := context.Background()
	require.NoError(t, b.Channel().SendVote(ctx, "A", p.ID, true))
	require.NoError(t, c.Channel().SendVote(ctx, "A", p.ID, false))

	e := waitForEvent(t, rejected, 2*time.Second)
	got := e.Data.(syncer.ProposalRejected)
	require.Equal(t, p.ID, got.ProposalID)
	require.Equal(t, "redundancy_insufficient", got.Reason)
}

// TestDuplicateVoteIsIdempotent checks that a repeated vote from the same
// voter never double-counts toward quorum or re-fires finalize (spec.md
// §4.H: "idempotent under duplicate votes").
func TestDuplicateVoteIsIdempotent(t *testing.T) {
	a := newTestNode(t, "A", config.WithVotingQuorum(1))
	b := newTestNode(t, "B", config.WithVotingQuorum(1))
	connectPair(t, a, b)

	accepted := subscribeAll(a.Events(), syncer.EventProposalAccepted)

	term, err := prime.NewNoun(23)
	require.NoError(t, err)
	p := a.Submit(context.Background(), term, nil, nil)

	ctx := context.Background()
	require.NoError(t, b.Channel().SendVote(ctx, "A", p.ID, true))
	waitForEvent(t, accepted, 2*time.Second)

	require.NoError(t, b.Channel().SendVote(ctx, "A", p.ID, true))
	select {
	case e := <-accepted:
		t.Fatalf("unexpected second accepted event: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
	require.Equal(t, gmf.StatusAccepted, p.Status)
}

// TestJoinPullsExistingEntriesFromPeer mirrors seeding scenario 6: a peer
// with three pre-existing entries hands them over via delta catch-up on
// Join.
func TestJoinPullsExistingEntriesFromPeer(t *testing.T) {
	a := newTestNode(t, "A")
	b := newTestNode(t, "B")

	for _, p := range []int{23, 29, 31} {
		term, err := prime.NewNoun(p)
		require.NoError(t, err)
		obj := semantic.New(term, nil, time.Now())
		b.Store().Insert(obj, 1.0, nil)
	}
	require.Equal(t, 3, b.Store().Len())

	connectPair(t, a, b)
	require.Eventually(t, func() bool { return a.Store().Len() == 3 }, 2*time.Second, 10*time.Millisecond)

	term, err := prime.NewNoun(23)
	require.NoError(t, err)
	entry, ok := a.Store().Get(semantic.IDFromSignature(term.Signature()))
	require.True(t, ok)
	require.False(t, entry.Placeholder)
}

// TestOfflineSubmitQueuesThenReconnectReplays checks that a Submit made
// while offline stays local, and Reconnect replays it (spec.md §4.H).
func TestOfflineSubmitQueuesThenReconnectReplays(t *testing.T) {
	a := newTestNode(t, "A")
	b := newTestNode(t, "B")
	require.False(t, a.Online())

	term, err := prime.NewNoun(23)
	require.NoError(t, err)
	p := a.Submit(context.Background(), term, nil, nil)
	require.Equal(t, gmf.StatusPending, p.Status)
	require.Equal(t, 1, a.ProposalLog().Len())

	resync := subscribeAll(a.Events(), syncer.EventResyncComplete)

	ctx := context.Background()
	ta := transport.NewInProcessTransport(32, logging.NoOp())
	tb := transport.NewInProcessTransport(32, logging.NoOp())
	transport.Pair(ta, tb)
	require.NoError(t, b.Join(ctx, a.NodeID(), tb, a.Store()))
	require.NoError(t, a.Reconnect(ctx, b.NodeID(), ta, b.Store()))

	e := waitForEvent(t, resync, 2*time.Second)
	got := e.Data.(syncer.ResyncComplete)
	require.Equal(t, 1, got.ReplayedCount)
	require.True(t, a.Online())
}

// TestOfflineStopsBroadcastingAndEmitsEvent checks Offline flips state and
// fires the event without touching the network.
func TestOfflineStopsBroadcastingAndEmitsEvent(t *testing.T) {
	a := newTestNode(t, "A")
	b := newTestNode(t, "B")
	connectPair(t, a, b)
	require.True(t, a.Online())

	offline := subscribeAll(a.Events(), syncer.EventOffline)
	a.Offline()
	waitForEvent(t, offline, time.Second)
	require.False(t, a.Online())
}

func TestPartitionPrimeDomainProducesDisjointContiguousSlices(t *testing.T) {
	slice0 := syncer.PartitionPrimeDomain(10, 3, 0)
	slice1 := syncer.PartitionPrimeDomain(10, 3, 1)
	slice2 := syncer.PartitionPrimeDomain(10, 3, 2)
	require.Equal(t, 10, len(slice0)+len(slice1)+len(slice2))

	seen := make(map[int]bool)
	for _, s := range [][]int{slice0, slice1, slice2} {
		for _, p := range s {
			require.False(t, seen[p], "prime %d assigned to more than one slice", p)
			seen[p] = true
		}
	}
}

func TestGetMyPrimeDomainReflectsNetworkPosition(t *testing.T) {
	a := newTestNode(t, "A")
	a.SetNetworkPosition(4, 1, 20)
	domain := a.GetMyPrimeDomain()
	require.NotEmpty(t, domain)
	require.Equal(t, syncer.PartitionPrimeDomain(20, 4, 1), domain)
}
