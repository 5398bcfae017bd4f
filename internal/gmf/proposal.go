package gmf

import (
	"encoding/json"
	"time"

	"github.com/dsnproject/dsn-core/internal/semantic"
)

// Status is a proposal's lifecycle state (spec.md §3).
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Vote is one recorded vote against a Proposal.
type Vote struct {
	Agree     bool
	Timestamp time.Time
}

// Proposal is a submitted semantic object awaiting or having received a
// commit decision (spec.md §3).
type Proposal struct {
	ID        string
	Object    *semantic.Object
	Proofs    json.RawMessage
	Metadata  map[string]any
	Timestamp time.Time
	Status    Status
	Votes     map[string]Vote
}

// NewProposal constructs a pending Proposal.
func NewProposal(id string, obj *semantic.Object, proofs json.RawMessage, metadata map[string]any) *Proposal {
	return &Proposal{
		ID:        id,
		Object:    obj,
		Proofs:    proofs,
		Metadata:  metadata,
		Timestamp: time.Now(),
		Status:    StatusPending,
		Votes:     make(map[string]Vote),
	}
}

// RecordVote stores voterID's vote, overwriting any prior vote from the
// same voter (spec.md §4.H: "idempotent under duplicate votes").
func (p *Proposal) RecordVote(voterID string, agree bool, ts time.Time) {
	p.Votes[voterID] = Vote{Agree: agree, Timestamp: ts}
}

// Redundancy returns R = (#agree) / (#votes); 0 when there are no votes
// yet (spec.md §3).
func (p *Proposal) Redundancy() float64 {
	if len(p.Votes) == 0 {
		return 0
	}
	agree := 0
	for _, v := range p.Votes {
		if v.Agree {
			agree++
		}
	}
	return float64(agree) / float64(len(p.Votes))
}
