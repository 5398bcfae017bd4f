package transport

import (
	"context"
	"time"

	"github.com/dsnproject/dsn-core/internal/events"
)

// Event kinds published on every transport's Bus.
const (
	EventMessage             events.Kind = "transport_message"
	EventStateChanged        events.Kind = "transport_state_changed"
	EventMessageDropped      events.Kind = "message_dropped"
	EventMaxReconnectExceeded events.Kind = "max_reconnect_exceeded"
)

// SendOptions configures a Send call.
type SendOptions struct {
	// Queue controls buffering when the transport is not connected. true
	// (what DefaultSendOptions returns) buffers into the bounded FIFO;
	// false (the zero value) fails fast with ErrTransportNotReady.
	Queue bool
}

// DefaultSendOptions returns "queue if disconnected" — spec.md §4.D's
// default behavior. A zero SendOptions{} literal has Queue=false instead.
func DefaultSendOptions() SendOptions { return SendOptions{Queue: true} }

// Stats tracks the transport counters spec.md §4.D and §5 require.
type Stats struct {
	BytesIn, BytesOut       uint64
	MessagesIn, MessagesOut uint64
	ConnectedAt             time.Time
	DisconnectedAt          time.Time
	QueueDepth              int
	ReconnectAttempts       int
}

// Transport is the collaborator interface every variant implements.
type Transport interface {
	State() State
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Send(ctx context.Context, data []byte, opts SendOptions) error
	Stats() Stats
	Events() *events.Bus
	// Close stops any reconnect loop, releases resources and sets the
	// Closed state. Connect does not check for that state, so calling it
	// after Close is not rejected.
	Close() error
}
