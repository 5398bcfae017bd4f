package prime

import "fmt"

// NormalFormResult is the outcome of verifyNormalForm (spec.md §4.A).
type NormalFormResult struct {
	Valid    bool
	Computed *Term
	Claimed  *Term
}

// VerifyNormalForm recomputes the normal form of t and compares its
// signature character-for-character against claimed.
func VerifyNormalForm(t *Term, claimed *Term, maxSteps int) NormalFormResult {
	computed := Evaluate(t, maxSteps)
	return NormalFormResult{
		Valid:    computed.Signature() == claimed.Signature(),
		Computed: computed,
		Claimed:  claimed,
	}
}

// VerifyInput bundles the term, its claimed normal form, and any
// accompanying proofs (opaque to the kernel; carried through for the
// protocol layer).
type VerifyInput struct {
	Term      *Term
	ClaimedNF *Term
	Proofs    map[string]any
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	Valid  bool
	Reason string
}

// Verify runs the two-stage proposal-validation check from spec.md §4.A:
// well-formedness (the term's constructors are re-applied by deep clone),
// then normal-form agreement.
func Verify(in VerifyInput, maxSteps int) VerifyResult {
	if _, err := Reconstruct(in.Term); err != nil {
		return VerifyResult{Valid: false, Reason: fmt.Sprintf("ill_formed: %v", err)}
	}
	nf := VerifyNormalForm(in.Term, in.ClaimedNF, maxSteps)
	if !nf.Valid {
		return VerifyResult{Valid: false, Reason: "normal_form_mismatch"}
	}
	return VerifyResult{Valid: true}
}

// Reconstruct deep-clones t by re-running every subterm through its
// constructor, re-validating every invariant from scratch. This is the
// "well-formedness by deep clone" stage spec.md §4.A calls for — useful
// when t arrived over the wire and has not yet been trusted.
func Reconstruct(t *Term) (*Term, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil term", ErrIllFormed)
	}
	switch t.kind {
	case KindNoun:
		return NewNoun(t.prime)
	case KindAdj:
		return NewAdj(t.prime)
	case KindChain:
		return NewChain(t.adjPrimes, t.nounPrime)
	case KindFuse:
		return NewFuse(t.p, t.q, t.r)
	case KindSeq:
		l, err := Reconstruct(t.left)
		if err != nil {
			return nil, err
		}
		r, err := Reconstruct(t.right)
		if err != nil {
			return nil, err
		}
		return NewSeq(l, r)
	case KindImpl:
		a, err := Reconstruct(t.antecedent)
		if err != nil {
			return nil, err
		}
		c, err := Reconstruct(t.consequent)
		if err != nil {
			return nil, err
		}
		return NewImpl(a, c)
	case KindUndefined:
		return NewUndefined(t.reason), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", ErrIllFormed, t.kind)
	}
}
