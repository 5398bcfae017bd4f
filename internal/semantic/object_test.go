package semantic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsnproject/dsn-core/internal/prime"
	"github.com/dsnproject/dsn-core/internal/semantic"
)

func TestIDIsPureFunctionOfSignature(t *testing.T) {
	a, err := prime.NewChain([]int{3, 5}, 7)
	require.NoError(t, err)
	b, err := prime.NewChain([]int{3, 5}, 7)
	require.NoError(t, err)

	objA := semantic.New(a, nil, time.Unix(0, 0))
	objB := semantic.New(b, nil, time.Unix(100, 0))

	require.Equal(t, objA.ID, objB.ID, "same term signature must yield same id regardless of timestamp")
}

func TestIDHasFixedPrefixAndLength(t *testing.T) {
	n, err := prime.NewNoun(7)
	require.NoError(t, err)
	obj := semantic.New(n, nil, time.Now())
	require.Contains(t, obj.ID, "Ω")
	require.Len(t, obj.ID, len("Ω")+32)
}

func TestToProposalCarriesClaimedNormalForm(t *testing.T) {
	f, err := prime.NewFuse(3, 5, 11)
	require.NoError(t, err)
	obj := semantic.New(f, map[string]any{"k": "v"}, time.Now())

	p, err := obj.ToProposal(1000)
	require.NoError(t, err)
	require.Equal(t, obj.ID, p.ID)
	require.NotEmpty(t, p.ClaimedNF)
}
