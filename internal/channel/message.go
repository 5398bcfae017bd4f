package channel

import (
	"encoding/json"
	"time"
)

// envelope peeks at the "type" discriminant shared by every wire message
// (spec.md §6) before decoding into the concrete variant.
type envelope struct {
	Type string `json:"type"`
}

// HandshakeMessage is the {type, nodeId, channelId, primeSet, phaseReference,
// timestamp} wire envelope (spec.md §6).
type HandshakeMessage struct {
	Type           string    `json:"type"`
	NodeID         string    `json:"nodeId"`
	ChannelID      string    `json:"channelId"`
	PrimeSet       []int     `json:"primeSet"`
	PhaseReference float64   `json:"phaseReference"`
	Timestamp      time.Time `json:"timestamp"`
}

// ObjectMessage is the {type, nodeId, object, phaseAdjustment, metadata,
// timestamp} wire envelope (spec.md §6).
type ObjectMessage struct {
	Type            string          `json:"type"`
	NodeID          string          `json:"nodeId"`
	Object          json.RawMessage `json:"object"`
	PhaseAdjustment float64         `json:"phaseAdjustment"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// ProposalMessage is the {type, nodeId, object, proofs, proposalId,
// metadata, timestamp} wire envelope (spec.md §6).
type ProposalMessage struct {
	Type       string          `json:"type"`
	NodeID     string          `json:"nodeId"`
	Object     json.RawMessage `json:"object"`
	Proofs     json.RawMessage `json:"proofs,omitempty"`
	ProposalID string          `json:"proposalId"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// VoteMessage is the {type, proposalId, nodeId, agree, timestamp} wire
// envelope (spec.md §6).
type VoteMessage struct {
	Type       string    `json:"type"`
	ProposalID string    `json:"proposalId"`
	NodeID     string    `json:"nodeId"`
	Agree      bool      `json:"agree"`
	Timestamp  time.Time `json:"timestamp"`
}

type pingMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
