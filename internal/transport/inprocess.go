package transport

import (
	"context"
	"sync"

	"github.com/dsnproject/dsn-core/internal/logging"
)

// InProcessTransport is two instances bound by Pair(); Send delivers
// asynchronously to the partner, mirroring spec.md §4.D's "runtime's
// soonest-possible scheduling primitive" while still preserving per-
// transport FIFO order (§5, §8): each instance owns a single ordered
// consumer goroutine draining its inbox, rather than one goroutine per
// message (which has no ordering guarantee relative to its siblings).
type InProcessTransport struct {
	*Core

	mu      sync.Mutex
	partner *InProcessTransport

	inbox     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewInProcessTransport constructs an unpaired in-process transport and
// starts its inbox consumer loop.
func NewInProcessTransport(queueCap int, log logging.Logger) *InProcessTransport {
	t := &InProcessTransport{
		Core:  NewCore(queueCap, 0, 0, log),
		inbox: make(chan []byte, queueCap),
		done:  make(chan struct{}),
	}
	go t.deliverLoop()
	return t
}

// deliverLoop is the single consumer that preserves FIFO order for
// messages handed to this transport via deliver.
func (t *InProcessTransport) deliverLoop() {
	for {
		select {
		case data := <-t.inbox:
			t.EmitMessage(data)
		case <-t.done:
			return
		}
	}
}

// Pair binds a and b so each delivers Send calls to the other.
func Pair(a, b *InProcessTransport) {
	a.mu.Lock()
	a.partner = b
	a.mu.Unlock()
	b.mu.Lock()
	b.partner = a
	b.mu.Unlock()
}

func (t *InProcessTransport) Connect(ctx context.Context) error {
	if t.State() == Connected {
		return nil
	}
	t.SetState(Connected)
	t.Drain(t.deliver)
	return nil
}

func (t *InProcessTransport) Disconnect(ctx context.Context) error {
	if t.State() == Disconnected {
		return nil
	}
	t.SetState(Disconnected)
	return nil
}

func (t *InProcessTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	t.SetState(Closed)
	return nil
}

func (t *InProcessTransport) deliver(data []byte) error {
	t.mu.Lock()
	partner := t.partner
	t.mu.Unlock()
	if partner == nil {
		return ErrTransportNotReady
	}
	partner.inbox <- data
	t.RecordSent(len(data))
	return nil
}

func (t *InProcessTransport) Send(ctx context.Context, data []byte, opts SendOptions) error {
	if t.State() != Connected {
		if !opts.Queue {
			return ErrTransportNotReady
		}
		t.Enqueue(data)
		return nil
	}
	return t.deliver(data)
}
