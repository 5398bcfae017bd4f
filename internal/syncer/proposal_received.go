package syncer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dsnproject/dsn-core/internal/channel"
	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/gmf"
	"github.com/dsnproject/dsn-core/internal/prime"
	"github.com/dsnproject/dsn-core/internal/protocol"
	"github.com/dsnproject/dsn-core/internal/semantic"
)

// onProposalReceived decodes the remote object, evaluates it against local
// state, and replies with a vote (spec.md §4.H). Unlike finalize, this
// check omits CheckRedundancy: a fresh incoming proposal carries no votes
// of its own yet, so redundancy is meaningless until the proposal's
// originator aggregates votes — that aggregation is what finalize does.
func (n *Node) onProposalReceived(peerID string, msg channel.ProposalMessage) {
	var wire channel.WireObject
	if err := json.Unmarshal(msg.Object, &wire); err != nil {
		n.log.Warn("syncer: malformed proposal object", "from", peerID, "error", err)
		return
	}
	term, err := prime.FromJSON(wire.Term)
	if err != nil {
		n.log.Warn("syncer: malformed proposal term", "from", peerID, "error", err)
		return
	}
	claimedNF, err := prime.FromJSON(wire.NormalForm)
	if err != nil {
		n.log.Warn("syncer: malformed proposal normal form", "from", peerID, "error", err)
		return
	}

	obj := &semantic.Object{ID: wire.ID, Term: term, Metadata: wire.Metadata, Timestamp: wire.Timestamp}
	local := gmf.NewProposal(msg.ProposalID, obj, msg.Proofs, msg.Metadata)

	snap := n.field.Snapshot()
	result := protocol.Evaluate(
		msg.Proofs,
		protocol.LocalEvidenceInput{
			Coherence:              snap.Coherence,
			Entropy:                snap.Entropy,
			ReconstructionFidelity: true,
		},
		term,
		claimedNF.Signature(),
		1.0, // no redundancy signal is available yet; always clears this stage.
		n.thresholds(),
	)

	n.mu.Lock()
	online := n.online
	n.mu.Unlock()
	if online {
		ctx, cancel := context.WithTimeout(context.Background(), n.cfg.VoteDeadline)
		defer cancel()
		if err := n.ch.SendVote(ctx, peerID, msg.ProposalID, result.Passed); err != nil {
			n.log.Warn("syncer: vote send failed", "peer", peerID, "proposalId", msg.ProposalID, "error", err)
		}
	}

	local.RecordVote(n.nodeID, result.Passed, time.Now())
	n.bus.Publish(events.Event{Kind: EventProposalVoted, Data: local})
}
