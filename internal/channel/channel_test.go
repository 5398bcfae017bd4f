package channel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsnproject/dsn-core/internal/channel"
	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/logging"
	"github.com/dsnproject/dsn-core/internal/prime"
	"github.com/dsnproject/dsn-core/internal/semantic"
	"github.com/dsnproject/dsn-core/internal/transport"
)

func newPair(t *testing.T) (*transport.InProcessTransport, *transport.InProcessTransport) {
	a := transport.NewInProcessTransport(32, logging.NoOp())
	b := transport.NewInProcessTransport(32, logging.NoOp())
	transport.Pair(a, b)
	return a, b
}

func TestHandshakeComputesPhaseOffsetAndFiresOnce(t *testing.T) {
	ctx := context.Background()
	at, bt := newPair(t)

	a := channel.New("node-a", "chan-1", []int{2, 3}, 1.5, logging.NoOp())
	b := channel.New("node-b", "chan-1", []int{5, 7}, 0.5, logging.NoOp())

	var connections int
	b.Events().Subscribe(channel.EventPeerConnected, func(e events.Event) { connections++ })

	require.NoError(t, b.Connect(ctx, "node-a", bt))
	require.NoError(t, a.Connect(ctx, "node-b", at))

	require.Eventually(t, func() bool {
		p, ok := b.Peer("node-a")
		return ok && p.Connected
	}, time.Second, time.Millisecond)

	p, ok := b.Peer("node-a")
	require.True(t, ok)
	require.InDelta(t, 1.0, p.PhaseOffset, 1e-9)
	require.Equal(t, 1, connections)
}

func TestDispatchParseErrorIsNonFatal(t *testing.T) {
	ctx := context.Background()
	at, bt := newPair(t)

	a := channel.New("node-a", "chan-1", nil, 0, logging.NoOp())
	b := channel.New("node-b", "chan-1", nil, 0, logging.NoOp())
	require.NoError(t, b.Connect(ctx, "node-a", bt))
	require.NoError(t, a.Connect(ctx, "node-b", at))

	errs := make(chan struct{}, 1)
	b.Events().Subscribe(channel.EventError, func(e events.Event) {
		select {
		case errs <- struct{}{}:
		default:
		}
	})

	require.NoError(t, at.Send(ctx, []byte("not json"), transport.DefaultSendOptions()))

	select {
	case <-errs:
	case <-time.After(time.Second):
		t.Fatal("expected EventError for malformed frame")
	}

	// The channel must still be usable afterward.
	require.Eventually(t, func() bool {
		_, ok := b.Peer("node-a")
		return ok
	}, time.Second, time.Millisecond)
}

func TestSendObjectFailsWhenPeerNotConnected(t *testing.T) {
	ctx := context.Background()
	a := channel.New("node-a", "chan-1", nil, 0, logging.NoOp())

	noun, err := prime.NewNoun(2)
	require.NoError(t, err)
	obj := semantic.New(noun, nil, time.Now())

	err = a.SendObject(ctx, "ghost", obj, nil, 100)
	require.ErrorIs(t, err, channel.ErrPeerNotConnected)
}

func TestBroadcastProposalDeliversToAllWhenNotRouted(t *testing.T) {
	ctx := context.Background()
	at1, bt1 := newPair(t)
	at2, bt2 := newPair(t)

	a := channel.New("node-a", "chan-1", nil, 0, logging.NoOp())
	b := channel.New("node-b", "chan-1", nil, 0, logging.NoOp())
	c := channel.New("node-c", "chan-1", nil, 0, logging.NoOp())

	require.NoError(t, a.Connect(ctx, "node-b", at1))
	require.NoError(t, b.Connect(ctx, "node-a", bt1))
	require.NoError(t, a.Connect(ctx, "node-c", at2))
	require.NoError(t, c.Connect(ctx, "node-a", bt2))

	received := make(chan string, 2)
	b.Events().Subscribe(channel.EventProposal, func(e events.Event) { received <- "b" })
	c.Events().Subscribe(channel.EventProposal, func(e events.Event) { received <- "c" })

	require.Eventually(t, func() bool {
		pb, okb := a.Peer("node-b")
		pc, okc := a.Peer("node-c")
		return okb && pb.Connected && okc && pc.Connected
	}, time.Second, time.Millisecond)

	noun, err := prime.NewNoun(2)
	require.NoError(t, err)
	obj := semantic.New(noun, nil, time.Now())

	a.BroadcastProposal(ctx, "prop-1", obj, nil, nil, 100, false)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case who := <-received:
			seen[who] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for proposal delivery, got %v", seen)
		}
	}
	require.True(t, seen["b"])
	require.True(t, seen["c"])
}

func TestRouteProposalFallsBackToAllWhenNoProfileScores(t *testing.T) {
	a := channel.New("node-a", "chan-1", nil, 0, logging.NoOp())
	noun, err := prime.NewNoun(2)
	require.NoError(t, err)
	route := a.RouteProposal(noun)
	require.Empty(t, route)
}
