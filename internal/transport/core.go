package transport

import (
	"sync"
	"time"

	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/logging"
)

// Core is the shared state machine every transport variant embeds: state
// transitions, the bounded outbound FIFO, stats, and reconnect backoff
// math. Concrete transports own dialing and wire I/O; Core owns the
// bookkeeping spec.md §4.D and §5 require of all of them.
type Core struct {
	log logging.Logger
	bus *events.Bus

	baseDelay   time.Duration
	maxAttempts int
	queueCap    int

	mu                sync.Mutex
	state             State
	stats             Stats
	queue             [][]byte
	reconnectAttempts int
}

// NewCore constructs a Core starting in Disconnected state.
func NewCore(queueCap int, baseDelay time.Duration, maxAttempts int, log logging.Logger) *Core {
	if log == nil {
		log = logging.NoOp()
	}
	return &Core{
		log:         log,
		bus:         events.NewBus(),
		baseDelay:   baseDelay,
		maxAttempts: maxAttempts,
		queueCap:    queueCap,
		state:       Disconnected,
	}
}

func (c *Core) Events() *events.Bus { return c.bus }

func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState transitions to s, stamping connect/disconnect timestamps and
// publishing EventStateChanged. Idempotent: setting the same state twice
// is a no-op (connect on an already-connected transport is a no-op per
// spec.md §4.D).
func (c *Core) SetState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	switch s {
	case Connected:
		c.stats.ConnectedAt = time.Now()
		c.reconnectAttempts = 0
	case Disconnected, Closed, Error:
		c.stats.DisconnectedAt = time.Now()
	}
	c.mu.Unlock()
	c.bus.Publish(events.Event{Kind: EventStateChanged, Data: s})
}

// Stats returns a snapshot of the transport's counters.
func (c *Core) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.QueueDepth = len(c.queue)
	s.ReconnectAttempts = c.reconnectAttempts
	return s
}

func (c *Core) RecordSent(n int) {
	c.mu.Lock()
	c.stats.BytesOut += uint64(n)
	c.stats.MessagesOut++
	c.mu.Unlock()
}

func (c *Core) RecordReceived(n int) {
	c.mu.Lock()
	c.stats.BytesIn += uint64(n)
	c.stats.MessagesIn++
	c.mu.Unlock()
}

// Enqueue appends data to the bounded FIFO. When the queue is already at
// capacity, the policy is drop-newest: the incoming message is rejected and
// an EventMessageDropped fires (spec.md §5's backpressure rule), ok=false.
func (c *Core) Enqueue(data []byte) (ok bool) {
	c.mu.Lock()
	if len(c.queue) >= c.queueCap {
		c.mu.Unlock()
		c.bus.Publish(events.Event{Kind: EventMessageDropped, Data: data})
		return false
	}
	c.queue = append(c.queue, data)
	c.mu.Unlock()
	return true
}

// Drain hands every currently-queued message to send, in FIFO order. A
// message that fails to send is re-queued together with the messages
// after it, ahead of anything enqueued while the drain ran, so FIFO order
// holds; the drain then stops to avoid spinning against a transport that
// just went back down.
func (c *Core) Drain(send func([]byte) error) {
	c.mu.Lock()
	pending := c.queue
	c.queue = nil
	c.mu.Unlock()

	for i, msg := range pending {
		if err := send(msg); err != nil {
			c.log.Warn("transport: drain send failed, re-queueing remainder", "error", err)
			remainder := append([][]byte{msg}, pending[i+1:]...)
			c.mu.Lock()
			c.queue = append(remainder, c.queue...)
			c.mu.Unlock()
			return
		}
	}
}

// NextBackoff computes the exponential reconnect delay for the given
// attempt (1-indexed): baseDelay * 2^(attempt-1), per spec.md §4.D.
func (c *Core) NextBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := c.baseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// MaxAttempts returns the configured reconnect ceiling.
func (c *Core) MaxAttempts() int { return c.maxAttempts }

// IncrementReconnectAttempts bumps the attempt counter and returns the new
// value.
func (c *Core) IncrementReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectAttempts++
	return c.reconnectAttempts
}

// EmitMaxReconnectExceeded publishes the terminal reconnect-ceiling event.
func (c *Core) EmitMaxReconnectExceeded() {
	c.bus.Publish(events.Event{Kind: EventMaxReconnectExceeded})
}

// EmitMessage publishes an inbound message to subscribers.
func (c *Core) EmitMessage(data []byte) {
	c.RecordReceived(len(data))
	c.bus.Publish(events.Event{Kind: EventMessage, Data: data})
}
