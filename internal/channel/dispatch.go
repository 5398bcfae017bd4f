package channel

import (
	"encoding/json"
	"time"

	"github.com/dsnproject/dsn-core/internal/events"
)

// handleInbound dispatches a raw inbound frame from peerID by its "type"
// discriminant (spec.md §4.E). Parse errors raise EventError and are not
// fatal to the channel or the peer connection.
func (c *Channel) handleInbound(peerID string, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.emitError(peerID, err)
		return
	}

	c.mu.Lock()
	if p, ok := c.peers[peerID]; ok {
		p.LastSeen = time.Now()
	}
	c.mu.Unlock()

	switch env.Type {
	case "handshake":
		c.handleHandshake(peerID, raw)
	case "object":
		c.handleObject(peerID, raw)
	case "proposal":
		c.handleProposal(peerID, raw)
	case "vote":
		c.handleVote(peerID, raw)
	case "ping":
		// heartbeat only; no event besides the lastSeen refresh above.
	default:
		c.bus.Publish(events.Event{Kind: events.Kind(env.Type), Data: raw})
	}
}

func (c *Channel) handleObject(peerID string, raw []byte) {
	var msg ObjectMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.emitError(peerID, err)
		return
	}
	c.bus.Publish(events.Event{Kind: EventObject, Data: InboundObject{PeerID: peerID, Message: msg}})
}

func (c *Channel) handleProposal(peerID string, raw []byte) {
	var msg ProposalMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.emitError(peerID, err)
		return
	}
	c.bus.Publish(events.Event{Kind: EventProposal, Data: InboundProposal{PeerID: peerID, Message: msg}})
}

func (c *Channel) handleVote(peerID string, raw []byte) {
	var msg VoteMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.emitError(peerID, err)
		return
	}
	c.bus.Publish(events.Event{Kind: EventVote, Data: InboundVote{PeerID: peerID, Message: msg}})
}

func (c *Channel) emitError(peerID string, err error) {
	c.bus.Publish(events.Event{Kind: EventError, Data: InboundError{PeerID: peerID, Err: err}})
}

func handshakeEvent(peerID string, msg HandshakeMessage) events.Event {
	return events.Event{Kind: EventHandshake, Data: InboundHandshake{PeerID: peerID, Message: msg}}
}

// InboundHandshake/InboundObject/InboundProposal/InboundVote/InboundError
// are the typed payloads delivered on their respective event kinds, so
// subscribers outside the package (the synchronizer) can type-assert
// ev.Data directly instead of re-parsing raw bytes.
type (
	InboundHandshake struct {
		PeerID  string
		Message HandshakeMessage
	}
	InboundObject struct {
		PeerID  string
		Message ObjectMessage
	}
	InboundProposal struct {
		PeerID  string
		Message ProposalMessage
	}
	InboundVote struct {
		PeerID  string
		Message VoteMessage
	}
	InboundError struct {
		PeerID string
		Err    error
	}
)
