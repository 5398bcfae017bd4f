package transport

import (
	"context"
	"sync"

	"github.com/dsnproject/dsn-core/internal/dsnerr"
	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/logging"
)

// EventPrimaryChanged fires whenever the Manager promotes a different
// transport to primary.
const EventPrimaryChanged events.Kind = "transport_primary_changed"

// Manager ranks a set of transports and always sends on the current
// primary, falling back through the ranked list on send failure. This is
// a supplemented feature: spec.md names the transport variants but leaves
// multi-transport failover to the implementation, so the policy here is
// "sticky primary" — promotion only happens when the current primary's
// Send call actually fails, never pre-emptively, so a healthy primary is
// never bumped by a transport further down the list coming back online.
type Manager struct {
	mu       sync.Mutex
	ranked   []Transport
	primary  int
	bus      *events.Bus
	log      logging.Logger
}

// NewManager builds a Manager over ranked, in preference order (index 0 is
// the initial primary).
func NewManager(ranked []Transport, log logging.Logger) *Manager {
	if log == nil {
		log = logging.NoOp()
	}
	return &Manager{
		ranked: ranked,
		bus:    events.NewBus(),
		log:    log,
	}
}

func (m *Manager) Events() *events.Bus { return m.bus }

// Primary returns the currently-selected transport.
func (m *Manager) Primary() Transport {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ranked) == 0 {
		return nil
	}
	return m.ranked[m.primary]
}

// ConnectAll connects every managed transport; failures are logged but do
// not abort the loop, since a lower-ranked transport may still be usable
// as a fallback.
func (m *Manager) ConnectAll(ctx context.Context) error {
	m.mu.Lock()
	ranked := append([]Transport(nil), m.ranked...)
	m.mu.Unlock()

	var firstErr error
	for _, t := range ranked {
		if err := t.Connect(ctx); err != nil {
			m.log.Warn("transport manager: connect failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Send sends via the current primary. On failure it walks the ranked list
// starting just after the primary, promoting the first transport whose
// Send succeeds and publishing EventPrimaryChanged. If every transport
// fails, the primary index is left unchanged and the last error is
// returned.
func (m *Manager) Send(ctx context.Context, data []byte, opts SendOptions) error {
	m.mu.Lock()
	ranked := m.ranked
	start := m.primary
	m.mu.Unlock()

	if len(ranked) == 0 {
		return dsnerr.ErrTransportNotReady
	}

	var lastErr error
	for offset := 0; offset < len(ranked); offset++ {
		idx := (start + offset) % len(ranked)
		if err := ranked[idx].Send(ctx, data, opts); err != nil {
			lastErr = err
			continue
		}
		if idx != start {
			m.mu.Lock()
			m.primary = idx
			m.mu.Unlock()
			m.bus.Publish(events.Event{Kind: EventPrimaryChanged, Data: idx})
		}
		return nil
	}
	return lastErr
}

// CloseAll closes every managed transport.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	ranked := append([]Transport(nil), m.ranked...)
	m.mu.Unlock()

	var firstErr error
	for _, t := range ranked {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
