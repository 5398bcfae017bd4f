package prime

import (
	"encoding/json"
	"fmt"
)

// wireTerm is the on-wire Term JSON form from spec.md §6. One struct
// serves every variant; unused fields are omitted via omitempty so each
// encoded message only carries its variant's fields.
type wireTerm struct {
	Type string `json:"type"`

	Prime int `json:"prime,omitempty"`

	AdjPrimes []int  `json:"adjPrimes,omitempty"`
	NounPrime int    `json:"nounPrime,omitempty"`
	Hash      uint64 `json:"hash,omitempty"`

	P         int `json:"p,omitempty"`
	Q         int `json:"q,omitempty"`
	R         int `json:"r,omitempty"`
	FusedPrime int `json:"fusedPrime,omitempty"`

	Left  *wireTerm `json:"left,omitempty"`
	Right *wireTerm `json:"right,omitempty"`

	Antecedent *wireTerm `json:"antecedent,omitempty"`
	Consequent *wireTerm `json:"consequent,omitempty"`

	// Reason is an addition beyond the six wire variants spec.md §6 lists:
	// a proposal's claimed normal form can itself be Undefined (e.g. a
	// peer honestly reporting that its own evaluation diverged), and the
	// wire format needs some way to carry that without inventing a
	// seventh out-of-band message type.
	Reason string `json:"reason,omitempty"`
}

// ToJSON encodes t into the wire Term JSON form.
func ToJSON(t *Term) ([]byte, error) {
	w, err := toWire(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func toWire(t *Term) (*wireTerm, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot encode nil term")
	}
	switch t.kind {
	case KindNoun:
		return &wireTerm{Type: "noun", Prime: t.prime}, nil
	case KindAdj:
		return &wireTerm{Type: "adj", Prime: t.prime}, nil
	case KindChain:
		hash, err := t.SemanticHash()
		if err != nil {
			return nil, err
		}
		return &wireTerm{Type: "chain", AdjPrimes: t.AdjPrimes(), NounPrime: t.nounPrime, Hash: hash}, nil
	case KindFuse:
		return &wireTerm{Type: "fuse", P: t.p, Q: t.q, R: t.r, FusedPrime: t.p + t.q + t.r}, nil
	case KindSeq:
		l, err := toWire(t.left)
		if err != nil {
			return nil, err
		}
		r, err := toWire(t.right)
		if err != nil {
			return nil, err
		}
		return &wireTerm{Type: "seq", Left: l, Right: r}, nil
	case KindImpl:
		a, err := toWire(t.antecedent)
		if err != nil {
			return nil, err
		}
		c, err := toWire(t.consequent)
		if err != nil {
			return nil, err
		}
		return &wireTerm{Type: "impl", Antecedent: a, Consequent: c}, nil
	case KindUndefined:
		return &wireTerm{Type: "undefined", Reason: t.reason}, nil
	default:
		return nil, fmt.Errorf("cannot encode term of kind %s", t.kind)
	}
}

// FromJSON decodes the wire Term JSON form back into a validated Term,
// re-applying every constructor invariant.
func FromJSON(data []byte) (*Term, error) {
	var w wireTerm
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	return fromWire(&w)
}

func fromWire(w *wireTerm) (*Term, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil wire term", ErrDeserialization)
	}
	switch w.Type {
	case "noun":
		return NewNoun(w.Prime)
	case "adj":
		return NewAdj(w.Prime)
	case "chain":
		return NewChain(w.AdjPrimes, w.NounPrime)
	case "fuse":
		return NewFuse(w.P, w.Q, w.R)
	case "seq":
		l, err := fromWire(w.Left)
		if err != nil {
			return nil, err
		}
		r, err := fromWire(w.Right)
		if err != nil {
			return nil, err
		}
		return NewSeq(l, r)
	case "impl":
		a, err := fromWire(w.Antecedent)
		if err != nil {
			return nil, err
		}
		c, err := fromWire(w.Consequent)
		if err != nil {
			return nil, err
		}
		return NewImpl(a, c)
	case "undefined":
		return NewUndefined(w.Reason), nil
	default:
		return nil, fmt.Errorf("%w: unknown term type %q", ErrDeserialization, w.Type)
	}
}
