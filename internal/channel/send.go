package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dsnproject/dsn-core/internal/prime"
	"github.com/dsnproject/dsn-core/internal/semantic"
	"github.com/dsnproject/dsn-core/internal/transport"
)

// WireObject is the "object" field nested inside an object-type or
// proposal-type envelope: {id, term, normalForm, timestamp, metadata}
// (spec.md §6).
type WireObject struct {
	ID         string          `json:"id"`
	Term       json.RawMessage `json:"term"`
	NormalForm json.RawMessage `json:"normalForm"`
	Timestamp  time.Time       `json:"timestamp"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

func encodeObject(obj *semantic.Object, maxEvalSteps int) (json.RawMessage, error) {
	termJSON, err := prime.ToJSON(obj.Term)
	if err != nil {
		return nil, fmt.Errorf("channel: encode term: %w", err)
	}
	nf := prime.Evaluate(obj.Term, maxEvalSteps)
	nfJSON, err := prime.ToJSON(nf)
	if err != nil {
		return nil, fmt.Errorf("channel: encode normal form: %w", err)
	}
	wo := WireObject{
		ID:         obj.ID,
		Term:       termJSON,
		NormalForm: nfJSON,
		Timestamp:  obj.Timestamp,
		Metadata:   obj.Metadata,
	}
	return json.Marshal(wo)
}

// SendObject sends obj to peerID, failing with ErrPeerNotConnected if the
// peer is absent or not connected (spec.md §4.E).
func (c *Channel) SendObject(ctx context.Context, peerID string, obj *semantic.Object, metadata map[string]any, maxEvalSteps int) error {
	peer, ok := c.Peer(peerID)
	if !ok || !peer.Connected {
		return ErrPeerNotConnected
	}
	objJSON, err := encodeObject(obj, maxEvalSteps)
	if err != nil {
		return err
	}
	msg := ObjectMessage{
		Type:            "object",
		NodeID:          c.nodeID,
		Object:          objJSON,
		PhaseAdjustment: peer.PhaseOffset,
		Metadata:        metadata,
		Timestamp:       time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return peer.Transport.Send(ctx, data, transport.DefaultSendOptions())
}

// SendVote sends a vote reply for proposalID to peerID.
func (c *Channel) SendVote(ctx context.Context, peerID, proposalID string, agree bool) error {
	peer, ok := c.Peer(peerID)
	if !ok || !peer.Connected {
		return ErrPeerNotConnected
	}
	msg := VoteMessage{
		Type:       "vote",
		ProposalID: proposalID,
		NodeID:     c.nodeID,
		Agree:      agree,
		Timestamp:  time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return peer.Transport.Send(ctx, data, transport.DefaultSendOptions())
}

// BroadcastProposal sends a proposal envelope to targets (every connected
// peer, or the routed subset chosen by RouteProposal). Individual send
// failures are swallowed: the synchronizer is responsible for redelivery
// via reconnect replay (spec.md §4.E, §4.H).
func (c *Channel) BroadcastProposal(ctx context.Context, proposalID string, obj *semantic.Object, proofs json.RawMessage, metadata map[string]any, maxEvalSteps int, routed bool) {
	objJSON, err := encodeObject(obj, maxEvalSteps)
	if err != nil {
		c.log.Warn("channel: broadcast proposal: encode failed", "error", err)
		return
	}
	msg := ProposalMessage{
		Type:       "proposal",
		NodeID:     c.nodeID,
		Object:     objJSON,
		Proofs:     proofs,
		ProposalID: proposalID,
		Metadata:   metadata,
		Timestamp:  time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Warn("channel: broadcast proposal: marshal failed", "error", err)
		return
	}

	var targets []Peer
	if routed {
		targets = c.RouteProposal(obj.Term)
	} else {
		targets = c.ConnectedPeers()
	}
	c.broadcastRaw(ctx, targets, data)
}

// Broadcast sends raw bytes to every connected peer, best-effort.
func (c *Channel) Broadcast(ctx context.Context, data []byte) {
	c.broadcastRaw(ctx, c.ConnectedPeers(), data)
}

func (c *Channel) broadcastRaw(ctx context.Context, targets []Peer, data []byte) {
	for _, p := range targets {
		if !p.Connected {
			continue
		}
		if err := p.Transport.Send(ctx, data, transport.DefaultSendOptions()); err != nil {
			c.log.Debug("channel: broadcast send failed", "peer", p.ID, "error", err)
		}
	}
}
