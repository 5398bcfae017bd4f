package syncer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dsnproject/dsn-core/internal/gmf"
	"github.com/dsnproject/dsn-core/internal/prime"
	"github.com/dsnproject/dsn-core/internal/semantic"
	"github.com/google/uuid"
)

// Submit builds a semantic object from t, wraps it in a pending Proposal,
// appends it to the proposal log, and — if the node is online — broadcasts
// it (routed) to peers. It returns immediately; acceptance is decided
// asynchronously by finalize once votes arrive or the deadline elapses
// (spec.md §4.H).
func (n *Node) Submit(ctx context.Context, t *prime.Term, proofs json.RawMessage, metadata map[string]any) *gmf.Proposal {
	obj := semantic.New(t, metadata, time.Now())
	proposalID := uuid.NewString()
	p := gmf.NewProposal(proposalID, obj, proofs, metadata)

	if dropped := n.proposals.Append(p); dropped != "" {
		n.log.Warn("syncer: proposal log at capacity, dropped oldest", "dropped", dropped)
	}

	n.mu.Lock()
	online := n.online
	n.mu.Unlock()

	if online {
		n.ch.BroadcastProposal(ctx, proposalID, obj, proofs, metadata, n.cfg.MaxEvalSteps, true)
	}

	n.scheduleFinalizeDeadline(p)
	return p
}

// scheduleFinalizeDeadline arms a one-shot timer that forces finalize to
// run on whatever votes have arrived if votingQuorum is never reached
// (spec.md §9: "vote aggregation has no default timeout... implementers
// should add a per-proposal deadline").
func (n *Node) scheduleFinalizeDeadline(p *gmf.Proposal) {
	timer := time.AfterFunc(n.cfg.VoteDeadline, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.voteTimers, p.ID)
		if p.Status == gmf.StatusPending {
			n.finalizeLocked(p)
		}
	})
	n.mu.Lock()
	n.voteTimers[p.ID] = timer
	n.mu.Unlock()
}
