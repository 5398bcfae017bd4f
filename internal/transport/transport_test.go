package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/logging"
	"github.com/dsnproject/dsn-core/internal/transport"
)

func TestInProcessPairDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	a := transport.NewInProcessTransport(16, logging.NoOp())
	b := transport.NewInProcessTransport(16, logging.NoOp())
	transport.Pair(a, b)
	require.NoError(t, a.Connect(ctx))
	require.NoError(t, b.Connect(ctx))

	received := make(chan []byte, 8)
	b.Events().Subscribe(transport.EventMessage, func(e events.Event) {
		received <- e.Data.([]byte)
	})

	require.NoError(t, a.Send(ctx, []byte("one"), transport.DefaultSendOptions()))
	require.NoError(t, a.Send(ctx, []byte("two"), transport.DefaultSendOptions()))

	var got [][]byte
	for i := 0; i < 2; i++ {
		select {
		case msg := <-received:
			got = append(got, msg)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
	require.Equal(t, []byte("one"), got[0])
	require.Equal(t, []byte("two"), got[1])
}

func TestInProcessSendBeforeConnectQueues(t *testing.T) {
	ctx := context.Background()
	a := transport.NewInProcessTransport(16, logging.NoOp())
	b := transport.NewInProcessTransport(16, logging.NoOp())
	transport.Pair(a, b)

	require.NoError(t, a.Send(ctx, []byte("queued"), transport.DefaultSendOptions()))
	require.Equal(t, 1, a.Stats().QueueDepth)

	received := make(chan []byte, 1)
	b.Events().Subscribe(transport.EventMessage, func(e events.Event) {
		received <- e.Data.([]byte)
	})
	require.NoError(t, b.Connect(ctx))
	require.NoError(t, a.Connect(ctx))

	select {
	case msg := <-received:
		require.Equal(t, []byte("queued"), msg)
	case <-time.After(time.Second):
		t.Fatal("queued message was never drained")
	}
}

func TestInProcessSendNotReadyFailsFastWithoutQueue(t *testing.T) {
	ctx := context.Background()
	a := transport.NewInProcessTransport(16, logging.NoOp())
	err := a.Send(ctx, []byte("x"), transport.SendOptions{Queue: false})
	require.ErrorIs(t, err, transport.ErrTransportNotReady)
}

func TestEnqueueDropsNewestWhenFull(t *testing.T) {
	ctx := context.Background()
	a := transport.NewInProcessTransport(2, logging.NoOp())
	b := transport.NewInProcessTransport(2, logging.NoOp())
	transport.Pair(a, b)

	var dropped int
	a.Events().Subscribe(transport.EventMessageDropped, func(e events.Event) {
		dropped++
	})

	opts := transport.DefaultSendOptions()
	require.NoError(t, a.Send(ctx, []byte("1"), opts))
	require.NoError(t, a.Send(ctx, []byte("2"), opts))
	require.NoError(t, a.Send(ctx, []byte("3"), opts))

	require.Equal(t, 1, dropped)
	require.Equal(t, 2, a.Stats().QueueDepth)
}

func TestCoreNextBackoffIsExponential(t *testing.T) {
	core := transport.NewCore(4, 100*time.Millisecond, 5, logging.NoOp())
	require.Equal(t, 100*time.Millisecond, core.NextBackoff(1))
	require.Equal(t, 200*time.Millisecond, core.NextBackoff(2))
	require.Equal(t, 400*time.Millisecond, core.NextBackoff(3))
	require.Equal(t, 800*time.Millisecond, core.NextBackoff(4))
}

func TestStateStringAndSetStateIsIdempotent(t *testing.T) {
	core := transport.NewCore(4, time.Millisecond, 1, logging.NoOp())
	require.Equal(t, "disconnected", core.State().String())

	var transitions int
	core.Events().Subscribe(transport.EventStateChanged, func(e events.Event) {
		transitions++
	})
	core.SetState(transport.Connected)
	core.SetState(transport.Connected)
	require.Equal(t, 1, transitions)
	require.Equal(t, "connected", core.State().String())
}

func TestManagerFailsOverToNextTransportOnSendFailure(t *testing.T) {
	ctx := context.Background()

	primary := transport.NewInProcessTransport(4, logging.NoOp())
	// primary is left unpaired and unconnected, so Send fails fast.
	backupA := transport.NewInProcessTransport(4, logging.NoOp())
	backupB := transport.NewInProcessTransport(4, logging.NoOp())
	transport.Pair(backupA, backupB)
	require.NoError(t, backupA.Connect(ctx))
	require.NoError(t, backupB.Connect(ctx))

	mgr := transport.NewManager([]transport.Transport{primary, backupA}, logging.NoOp())

	var promoted any
	mgr.Events().Subscribe(transport.EventPrimaryChanged, func(e events.Event) {
		promoted = e.Data
	})

	err := mgr.Send(ctx, []byte("hi"), transport.SendOptions{Queue: false})
	require.NoError(t, err)
	require.Equal(t, 1, promoted)
	require.Same(t, backupA, mgr.Primary())
}

func TestManagerStaysOnHealthyPrimary(t *testing.T) {
	ctx := context.Background()
	a1 := transport.NewInProcessTransport(4, logging.NoOp())
	a2 := transport.NewInProcessTransport(4, logging.NoOp())
	transport.Pair(a1, a2)
	require.NoError(t, a1.Connect(ctx))
	require.NoError(t, a2.Connect(ctx))

	b1 := transport.NewInProcessTransport(4, logging.NoOp())

	mgr := transport.NewManager([]transport.Transport{a1, b1}, logging.NoOp())

	var promotions int
	mgr.Events().Subscribe(transport.EventPrimaryChanged, func(e events.Event) {
		promotions++
	})

	require.NoError(t, mgr.Send(ctx, []byte("hi"), transport.SendOptions{Queue: false}))
	require.Equal(t, 0, promotions)
	require.Same(t, a1, mgr.Primary())
}
