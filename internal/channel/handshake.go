package channel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dsnproject/dsn-core/internal/transport"
)

// sendHandshake sends the one-shot handshake envelope to peerID. Receipt
// on the other side is idempotent: a duplicate handshake only refreshes
// phaseOffset/lastSeen and never re-fires EventPeerConnected (see
// markConnected).
func (c *Channel) sendHandshake(ctx context.Context, peerID string) error {
	t, ok := c.transportFor(peerID)
	if !ok {
		return ErrPeerNotConnected
	}
	msg := HandshakeMessage{
		Type:           "handshake",
		NodeID:         c.nodeID,
		ChannelID:      c.channelID,
		PrimeSet:       c.primeSet,
		PhaseReference: c.phaseReference,
		Timestamp:      time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return t.Send(ctx, data, transport.DefaultSendOptions())
}

func (c *Channel) handleHandshake(peerID string, raw []byte) {
	var msg HandshakeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.emitError(peerID, err)
		return
	}
	phaseOffset := msg.PhaseReference - c.phaseReference
	var expertise *ExpertiseProfile
	if len(msg.PrimeSet) > 0 {
		expertise = &ExpertiseProfile{PrimeDomain: append([]int(nil), msg.PrimeSet...)}
	}
	c.markConnected(peerID, phaseOffset, expertise)
	c.bus.Publish(handshakeEvent(peerID, msg))
}
