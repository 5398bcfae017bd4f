// Package channel implements the PRRC (Prime-Resonant Resonance Channel)
// peer multiplexer: a transport-agnostic registry with a phase-alignment
// handshake, typed message dispatch, broadcast, and expertise-based
// routing (spec.md §4.E).
package channel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/logging"
	"github.com/dsnproject/dsn-core/internal/transport"
)

// Event kinds published on a Channel's Bus.
const (
	EventPeerConnected    events.Kind = "peer_connected"
	EventPeerDisconnected events.Kind = "peer_disconnected"
	EventHandshake        events.Kind = "handshake"
	EventObject           events.Kind = "object"
	EventProposal         events.Kind = "proposal"
	EventVote             events.Kind = "vote"
	EventError            events.Kind = "error"
)

// ExpertiseProfile is the out-of-band routing profile a peer may publish,
// typically piggybacked on handshake follow-ups (spec.md §4.E).
type ExpertiseProfile struct {
	PrimeDomain []int
	SMFAxis     int
	Domain      string
}

// Peer is one entry of the channel's peer registry.
type Peer struct {
	ID          string
	Transport   transport.Transport
	PhaseOffset float64
	Connected   bool
	LastSeen    time.Time
	Expertise   *ExpertiseProfile
}

// Channel owns the peer registry and message routing for one node. The
// peers map is mutated only on connect/disconnect; Broadcast and routing
// take a snapshot before iterating so they are safe against concurrent
// mutation (spec.md §5).
type Channel struct {
	nodeID         string
	channelID      string
	primeSet       []int
	phaseReference float64

	log logging.Logger
	bus *events.Bus

	mu    sync.RWMutex
	peers map[string]*Peer

	localDomain  string
	localSMFAxis int
}

// New constructs a Channel for nodeID participating in channelID, with the
// locally-owned prime set and phase reference sent in every handshake.
func New(nodeID, channelID string, primeSet []int, phaseReference float64, log logging.Logger) *Channel {
	if log == nil {
		log = logging.NoOp()
	}
	return &Channel{
		nodeID:         nodeID,
		channelID:      channelID,
		primeSet:       append([]int(nil), primeSet...),
		phaseReference: phaseReference,
		log:            log,
		bus:            events.NewBus(),
		peers:          make(map[string]*Peer),
	}
}

func (c *Channel) Events() *events.Bus { return c.bus }

// NodeID returns the channel's own node identifier.
func (c *Channel) NodeID() string { return c.nodeID }

// Peer returns a snapshot of the named peer's registry entry, if present.
func (c *Channel) Peer(peerID string) (Peer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.peers[peerID]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

// Peers returns a snapshot slice of every registered peer, sorted by ID
// for deterministic iteration in tests and routing.
func (c *Channel) Peers() []Peer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Peer, 0, len(c.peers))
	for _, p := range c.peers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConnectedPeers returns only peers currently marked connected.
func (c *Channel) ConnectedPeers() []Peer {
	all := c.Peers()
	out := all[:0:0]
	for _, p := range all {
		if p.Connected {
			out = append(out, p)
		}
	}
	return out
}

// Connect registers peerID on t, wires its inbound dispatch, and sends the
// one-shot handshake envelope. Reconnecting an already-registered peer on
// a new transport replaces the old entry (idempotent by peerID).
func (c *Channel) Connect(ctx context.Context, peerID string, t transport.Transport) error {
	c.mu.Lock()
	c.peers[peerID] = &Peer{ID: peerID, Transport: t, LastSeen: time.Now()}
	c.mu.Unlock()

	t.Events().Subscribe(transport.EventMessage, func(e events.Event) {
		data, _ := e.Data.([]byte)
		c.handleInbound(peerID, data)
	})

	if err := t.Connect(ctx); err != nil {
		return fmt.Errorf("channel: connect peer %s: %w", peerID, err)
	}

	return c.sendHandshake(ctx, peerID)
}

// Disconnect tears down peerID's transport and removes it from the
// registry, emitting EventPeerDisconnected.
func (c *Channel) Disconnect(ctx context.Context, peerID string) error {
	c.mu.Lock()
	p, ok := c.peers[peerID]
	if ok {
		delete(c.peers, peerID)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	err := p.Transport.Disconnect(ctx)
	c.bus.Publish(events.Event{Kind: EventPeerDisconnected, Data: peerID})
	return err
}

func (c *Channel) markConnected(peerID string, phaseOffset float64, expertise *ExpertiseProfile) {
	c.mu.Lock()
	p, ok := c.peers[peerID]
	if !ok {
		c.mu.Unlock()
		return
	}
	alreadyConnected := p.Connected
	p.Connected = true
	p.PhaseOffset = phaseOffset
	p.LastSeen = time.Now()
	if expertise != nil {
		p.Expertise = expertise
	}
	c.mu.Unlock()

	if !alreadyConnected {
		c.bus.Publish(events.Event{Kind: EventPeerConnected, Data: peerID})
	}
}

func (c *Channel) transportFor(peerID string) (transport.Transport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.peers[peerID]
	if !ok {
		return nil, false
	}
	return p.Transport, true
}
