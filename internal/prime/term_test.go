package prime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dsnproject/dsn-core/internal/prime"
)

func TestChainOrderingEnforcement(t *testing.T) {
	// Seeding scenario 2: Chain(adjs=[5,3], noun=7) is ill-formed.
	_, err := prime.NewChain([]int{5, 3}, 7)
	require.Error(t, err)
	require.ErrorIs(t, err, prime.ErrIllFormed)

	// Chain(adjs=[3,5], noun=7) is well-formed and already a value.
	c, err := prime.NewChain([]int{3, 5}, 7)
	require.NoError(t, err)
	require.True(t, c.IsValue())
}

func TestChainNounMustExceedAdjs(t *testing.T) {
	// Noun prime 2 can never exceed any adj, so a chain with noun=2 is
	// always ill-formed once any adjs are present.
	_, err := prime.NewChain([]int{2}, 2)
	require.Error(t, err)

	// Prime 2 itself is a valid adjective when the noun exceeds it.
	c, err := prime.NewChain([]int{2}, 3)
	require.NoError(t, err)
	require.Equal(t, []int{2}, c.AdjPrimes())
}

func TestFuseRequiresOddPrimes(t *testing.T) {
	_, err := prime.NewFuse(2, 5, 11)
	require.Error(t, err)

	f, err := prime.NewFuse(3, 5, 11)
	require.NoError(t, err)
	require.False(t, f.IsValue())
}

func TestDeterministicFusion(t *testing.T) {
	// Seeding scenario 1.
	f, err := prime.NewFuse(3, 5, 11)
	require.NoError(t, err)

	nf := prime.Evaluate(f, 1000)
	require.Equal(t, prime.KindNoun, nf.Kind())
	require.Equal(t, 19, nf.Prime())

	claimed, err := prime.NewNoun(19)
	require.NoError(t, err)
	result := prime.Verify(prime.VerifyInput{Term: f, ClaimedNF: claimed}, 1000)
	require.True(t, result.Valid)
}

func TestEvaluateIsIdempotentOnValues(t *testing.T) {
	c, err := prime.NewChain([]int{3, 5}, 7)
	require.NoError(t, err)
	require.Equal(t, c.Signature(), prime.Evaluate(c, 1000).Signature())
}

func TestBareAdjIsUndefined(t *testing.T) {
	a, err := prime.NewAdj(3)
	require.NoError(t, err)
	nf := prime.Evaluate(a, 1000)
	require.Equal(t, prime.KindUndefined, nf.Kind())
}

func TestBudgetExhaustionYieldsUndefined(t *testing.T) {
	a, err := prime.NewAdj(3)
	require.NoError(t, err)
	seq := a
	for i := 0; i < 5; i++ {
		seq, err = prime.NewSeq(seq, seq)
		require.NoError(t, err)
	}
	nf := prime.Evaluate(seq, 0)
	require.Equal(t, prime.KindUndefined, nf.Kind())
	require.Equal(t, "max_steps_exceeded", nf.Reason())
}

func TestCanonicalTriadIsPermutationInvariant(t *testing.T) {
	p1, q1, r1, ok1 := prime.CanonicalTriad(3, 5, 11)
	p2, q2, r2, ok2 := prime.CanonicalTriad(11, 3, 5)
	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, [3]int{p1, q1, r1}, [3]int{p2, q2, r2})
}

func TestFuseForTargetSmallestLexicographic(t *testing.T) {
	p, q, r, ok := prime.FuseForTarget(19)
	require.True(t, ok)
	require.True(t, p <= q && q <= r)
	require.True(t, prime.IsOddPrime(p) && prime.IsOddPrime(q) && prime.IsOddPrime(r))
	require.Equal(t, 19, p+q+r)
	require.Equal(t, [3]int{3, 5, 11}, [3]int{p, q, r})
}

func TestTermJSONRoundTrip(t *testing.T) {
	c, err := prime.NewChain([]int{3, 5}, 7)
	require.NoError(t, err)

	data, err := prime.ToJSON(c)
	require.NoError(t, err)

	back, err := prime.FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, c.Signature(), back.Signature())
}

func TestSeqCollapsesToRight(t *testing.T) {
	l, err := prime.NewNoun(3)
	require.NoError(t, err)
	r, err := prime.NewNoun(5)
	require.NoError(t, err)
	seq, err := prime.NewSeq(l, r)
	require.NoError(t, err)

	nf := prime.Evaluate(seq, 10)
	require.Equal(t, r.Signature(), nf.Signature())
}
