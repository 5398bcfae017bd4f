// Package relay implements the HTTP session hub that backs cmd/dsnd's demo
// server: the concrete /session, /poll/{id}, /send, /stream, /session/{id}
// endpoints the long-poll and SSE transport variants speak against (spec.md
// §4.D / §6). It is not part of the core library — the core only defines
// the client side of that contract in internal/transport.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dsnproject/dsn-core/internal/logging"
)

// Hub tracks one inbox queue per session and fans outbound sends to every
// other session, the way a two-node demo mesh relays messages between
// peers that cannot dial each other directly.
type Hub struct {
	log logging.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	inbox chan []byte
}

// NewHub constructs an empty Hub.
func NewHub(log logging.Logger) *Hub {
	if log == nil {
		log = logging.NoOp()
	}
	return &Hub{log: log, sessions: make(map[string]*session)}
}

// inboxCap bounds per-session buffering; a session that never polls drops
// the oldest unread message rather than blocking senders indefinitely.
const inboxCap = 256

// Create registers a new session and returns its id.
func (h *Hub) Create() string {
	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = &session{inbox: make(chan []byte, inboxCap)}
	h.mu.Unlock()
	h.log.Debug("relay: session created", "sessionId", id)
	return id
}

// Close removes a session. Subsequent polls/sends against it fail.
func (h *Hub) Close(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
	h.log.Debug("relay: session closed", "sessionId", id)
}

func (h *Hub) get(id string) (*session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Send enqueues data on every session other than fromID, dropping the
// oldest buffered message for any inbox that is already full.
func (h *Hub) Send(fromID string, data []byte) bool {
	h.mu.Lock()
	targets := make([]*session, 0, len(h.sessions))
	found := false
	for id, s := range h.sessions {
		if id == fromID {
			found = true
			continue
		}
		targets = append(targets, s)
	}
	h.mu.Unlock()
	if !found {
		return false
	}
	for _, s := range targets {
		select {
		case s.inbox <- data:
		default:
			select {
			case <-s.inbox:
			default:
			}
			select {
			case s.inbox <- data:
			default:
			}
		}
	}
	return true
}

// Poll blocks until a message is available for id, ctx is done, or timeout
// elapses, matching the long-poll contract LongPollTransport drives
// against (spec.md §4.D).
func (h *Hub) Poll(ctx context.Context, id string, timeout time.Duration) ([][]byte, bool) {
	s, ok := h.get(id)
	if !ok {
		return nil, false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-s.inbox:
		out := [][]byte{msg}
		draining := true
		for draining {
			select {
			case more := <-s.inbox:
				out = append(out, more)
			default:
				draining = false
			}
		}
		return out, true
	case <-ctx.Done():
		return nil, true
	case <-timer.C:
		return nil, true
	}
}

// Subscribe returns the raw inbox channel for id so the SSE handler can
// forward messages as they arrive, and false if no such session exists.
func (h *Hub) Subscribe(id string) (<-chan []byte, bool) {
	s, ok := h.get(id)
	if !ok {
		return nil, false
	}
	return s.inbox, true
}
