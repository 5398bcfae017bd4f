// Package semantic implements the semantic object: a Prime Calculus term
// wrapped with stable identity and JSON form (spec.md §3, §4.B).
package semantic

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dsnproject/dsn-core/internal/prime"
)

// Object is {id, term, metadata, timestamp} from spec.md §3. id is a
// deterministic hash of the term's signature, so the same term produces the
// same id on every node.
type Object struct {
	ID        string
	Term      *prime.Term
	Metadata  map[string]any
	Timestamp time.Time
}

// New builds an Object from t, deriving its id from the term signature.
func New(t *prime.Term, metadata map[string]any, ts time.Time) *Object {
	return &Object{
		ID:        IDFromSignature(t.Signature()),
		Term:      t,
		Metadata:  metadata,
		Timestamp: ts,
	}
}

// IDFromSignature fixes the network-wide hash choice spec.md §9 left open:
// SHA-256 of the UTF-8 signature, truncated to 128 bits, hex-encoded with
// an "Ω" prefix. Every node must use the same algorithm for ids to agree,
// so this is not pluggable.
func IDFromSignature(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return "Ω" + hex.EncodeToString(sum[:16])
}

// Proposal is the on-wire envelope produced by ToProposal — spec.md §4.B's
// "{id, term, claimedNF, signature, timestamp, metadata}".
type Proposal struct {
	ID         string         `json:"id"`
	Term       json.RawMessage `json:"term"`
	ClaimedNF  json.RawMessage `json:"claimedNF"`
	Signature  string         `json:"signature"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ToProposal evaluates the object's term (bounded by maxEvalSteps) and
// packages the wire envelope a proposal carries across the channel.
func (o *Object) ToProposal(maxEvalSteps int) (*Proposal, error) {
	termJSON, err := prime.ToJSON(o.Term)
	if err != nil {
		return nil, fmt.Errorf("semantic: encode term: %w", err)
	}
	nf := prime.Evaluate(o.Term, maxEvalSteps)
	nfJSON, err := prime.ToJSON(nf)
	if err != nil {
		return nil, fmt.Errorf("semantic: encode normal form: %w", err)
	}
	return &Proposal{
		ID:        o.ID,
		Term:      termJSON,
		ClaimedNF: nfJSON,
		Signature: o.Term.Signature(),
		Timestamp: o.Timestamp,
		Metadata:  o.Metadata,
	}, nil
}
