package prime

// Evaluate repeatedly applies a single reduction step until t is in normal
// form or maxSteps steps have been taken (spec.md §4.A). Reduction order:
// Seq and Impl reduce their left operand first, then the right
// (leftmost-innermost); Fuse contracts to its noun sum in one step; Noun
// and Chain are already fixed; a bare Adj or unrecognized term is
// Undefined. Budget exhaustion yields Undefined("max_steps_exceeded").
func Evaluate(t *Term, maxSteps int) *Term {
	cur := t
	for i := 0; i < maxSteps; i++ {
		if cur.IsValue() || cur.kind == KindUndefined {
			return cur
		}
		cur = step(cur)
	}
	if cur.IsValue() || cur.kind == KindUndefined {
		return cur
	}
	return NewUndefined("max_steps_exceeded")
}

// step performs exactly one leftmost-innermost reduction.
func step(t *Term) *Term {
	switch t.kind {
	case KindNoun, KindChain:
		return t
	case KindAdj:
		return NewUndefined("bare_adjective")
	case KindFuse:
		// Construction already guarantees p+q+r is prime.
		n, err := NewNoun(t.p + t.q + t.r)
		if err != nil {
			return NewUndefined("fuse_sum_not_prime")
		}
		return n
	case KindSeq:
		if next, done := stepOperand(t.left); !done {
			seq, err := NewSeq(next, t.right)
			if err != nil {
				return NewUndefined("seq_reduction_failed")
			}
			return seq
		} else if next.kind == KindUndefined {
			return next
		}
		if next, done := stepOperand(t.right); !done {
			seq, err := NewSeq(t.left, next)
			if err != nil {
				return NewUndefined("seq_reduction_failed")
			}
			return seq
		} else if next.kind == KindUndefined {
			return next
		}
		// Both operands are values: a sequence yields its right side.
		return t.right
	case KindImpl:
		if next, done := stepOperand(t.antecedent); !done {
			impl, err := NewImpl(next, t.consequent)
			if err != nil {
				return NewUndefined("impl_reduction_failed")
			}
			return impl
		} else if next.kind == KindUndefined {
			// An antecedent that cannot be established propagates failure.
			return next
		}
		if next, done := stepOperand(t.consequent); !done {
			impl, err := NewImpl(t.antecedent, next)
			if err != nil {
				return NewUndefined("impl_reduction_failed")
			}
			return impl
		} else if next.kind == KindUndefined {
			return next
		}
		// Antecedent holds (is a value): implication yields its consequent.
		return t.consequent
	case KindUndefined:
		return t
	default:
		return NewUndefined("unknown_term")
	}
}

// stepOperand reduces operand by exactly one step if it is neither a value
// nor already Undefined. done reports whether operand needs no further
// reduction (value or Undefined) — in which case the returned term is
// operand itself, unmodified.
func stepOperand(operand *Term) (next *Term, done bool) {
	if operand.IsValue() || operand.kind == KindUndefined {
		return operand, true
	}
	return step(operand), false
}
