package broker_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsnproject/dsn-core/internal/broker"
	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/logging"
)

func TestMemoryBrokerSetGetDelete(t *testing.T) {
	ctx := context.Background()
	b := broker.NewMemoryBroker(time.Hour, logging.NoOp())
	require.NoError(t, b.Connect(ctx))
	defer b.Disconnect(ctx)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), broker.SetOptions{}))
	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(v))

	require.NoError(t, b.Delete(ctx, "k"))
	_, ok, err = b.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryBrokerTTLExpiry(t *testing.T) {
	ctx := context.Background()
	b := broker.NewMemoryBroker(time.Hour, logging.NoOp())
	require.NoError(t, b.Connect(ctx))
	defer b.Disconnect(ctx)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), broker.SetOptions{TTL: time.Millisecond}))
	time.Sleep(5 * time.Millisecond)
	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok, "expired key must be a lazy-evicted miss")
}

func TestMemoryBrokerGlobKeys(t *testing.T) {
	ctx := context.Background()
	b := broker.NewMemoryBroker(time.Hour, logging.NoOp())
	require.NoError(t, b.Connect(ctx))
	defer b.Disconnect(ctx)

	require.NoError(t, b.Set(ctx, "smf:axis:0", []byte("1"), broker.SetOptions{}))
	require.NoError(t, b.Set(ctx, "smf:axis:1", []byte("2"), broker.SetOptions{}))
	require.NoError(t, b.Set(ctx, "smf:codebook", []byte("{}"), broker.SetOptions{}))

	keys, err := b.Keys(ctx, "smf:axis:*")
	require.NoError(t, err)
	require.Len(t, keys, 2)
}

func TestMemoryBrokerNotConnected(t *testing.T) {
	ctx := context.Background()
	b := broker.NewMemoryBroker(time.Hour, logging.NoOp())
	_, _, err := b.Get(ctx, "k")
	require.ErrorIs(t, err, broker.ErrNotConnected)
}

func TestFileBrokerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	b := broker.NewFileBroker(dir)
	require.NoError(t, b.Connect(ctx))

	require.NoError(t, b.Set(ctx, "some/weird:key", []byte("hello"), broker.SetOptions{}))
	v, ok, err := b.Get(ctx, "some/weird:key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", string(v))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileBrokerMissingIsMiss(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	b := broker.NewFileBroker(dir)
	require.NoError(t, b.Connect(ctx))

	_, ok, err := b.Get(ctx, "never-set")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCachingBrokerWriteThrough(t *testing.T) {
	ctx := context.Background()
	mem := broker.NewMemoryBroker(time.Hour, logging.NoOp())
	require.NoError(t, mem.Connect(ctx))
	defer mem.Disconnect(ctx)

	cb, err := broker.NewCachingBroker(mem, 16, time.Hour)
	require.NoError(t, err)

	require.NoError(t, cb.Set(ctx, "k", []byte("v"), broker.SetOptions{}))
	// Value must be visible directly on the underlying broker too.
	v, ok, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(v))
}

func TestDomainBrokerRotateAxesAndEvent(t *testing.T) {
	ctx := context.Background()
	mem := broker.NewMemoryBroker(time.Hour, logging.NoOp())
	require.NoError(t, mem.Connect(ctx))
	defer mem.Disconnect(ctx)

	bus := events.NewBus()
	var updates int
	bus.Subscribe(broker.EventSMFUpdated, func(events.Event) { updates++ })

	d := broker.NewDomainBroker(mem, bus)
	require.NoError(t, d.SetSMF(ctx, broker.SMFState{S: []float64{1, 2, 3}}))

	s, err := d.RotateAxes(ctx, map[int]float64{0: 1, 2: -1})
	require.NoError(t, err)
	require.Equal(t, []float64{2, 2, 2}, s.S)
	require.Equal(t, 2, updates)
}
