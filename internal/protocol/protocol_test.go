package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dsnproject/dsn-core/internal/prime"
	"github.com/dsnproject/dsn-core/internal/protocol"
)

func defaultThresholds() protocol.Thresholds {
	return protocol.Thresholds{
		CoherenceThreshold:  0.7,
		RedundancyThreshold: 0.6,
		EntropyMin:          0.1,
		EntropyMax:          2.5,
		MaxEvalSteps:        1000,
	}
}

func TestCheckTwistClosurePassesThroughWhenAbsent(t *testing.T) {
	require.True(t, protocol.CheckTwistClosure(nil).Passed)
}

func TestCheckTwistClosureFailsOnMalformedPacket(t *testing.T) {
	r := protocol.CheckTwistClosure([]byte("not json"))
	require.False(t, r.Passed)
	require.Equal(t, "twist_closure_malformed", r.Reason)
}

func TestCheckLocalEvidenceFailsOnLowCoherence(t *testing.T) {
	r := protocol.CheckLocalEvidence(protocol.LocalEvidenceInput{Coherence: 0.1, Entropy: 1.0, ReconstructionFidelity: true}, defaultThresholds())
	require.False(t, r.Passed)
	require.Equal(t, "coherence_below_threshold", r.Reason)
}

func TestCheckLocalEvidenceFailsOnOutOfBandEntropy(t *testing.T) {
	r := protocol.CheckLocalEvidence(protocol.LocalEvidenceInput{Coherence: 0.9, Entropy: 3.0, ReconstructionFidelity: true}, defaultThresholds())
	require.False(t, r.Passed)
	require.Equal(t, "entropy_out_of_band", r.Reason)
}

func TestCheckKernelEvidenceDetectsMismatch(t *testing.T) {
	n, err := prime.NewNoun(2)
	require.NoError(t, err)
	r := protocol.CheckKernelEvidence(n, "N(3)", 100)
	require.False(t, r.Passed)
	require.Equal(t, "normal_form_mismatch", r.Reason)

	r = protocol.CheckKernelEvidence(n, "N(2)", 100)
	require.True(t, r.Passed)
}

func TestCheckRedundancyThreshold(t *testing.T) {
	th := defaultThresholds()
	require.False(t, protocol.CheckRedundancy(0.5, th).Passed)
	require.True(t, protocol.CheckRedundancy(0.6, th).Passed)
}

func TestEvaluateFailsFastAtFirstCheck(t *testing.T) {
	n, err := prime.NewNoun(2)
	require.NoError(t, err)
	th := defaultThresholds()

	r := protocol.Evaluate(nil, protocol.LocalEvidenceInput{Coherence: 0.2, Entropy: 1, ReconstructionFidelity: true}, n, "N(2)", 1.0, th)
	require.False(t, r.Passed)
	require.Equal(t, "coherence_below_threshold", r.Reason)

	r = protocol.Evaluate(nil, protocol.LocalEvidenceInput{Coherence: 0.9, Entropy: 1, ReconstructionFidelity: true}, n, "N(2)", 1.0, th)
	require.True(t, r.Passed)
}

func TestAccuracyTrackerColdStartUsesLaplacePrior(t *testing.T) {
	tr := protocol.NewAccuracyTracker()
	require.InDelta(t, 0.5, tr.Accuracy("new-node"), 1e-9)

	tr.RecordVoteOutcome("new-node", true)
	require.InDelta(t, 2.0/3.0, tr.Accuracy("new-node"), 1e-9)

	tr.RecordVoteOutcome("new-node", false)
	require.InDelta(t, 2.0/4.0, tr.Accuracy("new-node"), 1e-9)
}

func TestWeightedRedundancyComputesRatio(t *testing.T) {
	weights := map[string]float64{"a": 1.0, "b": 1.0, "c": 2.0}
	agree := map[string]bool{"a": true, "b": false, "c": true}
	r := protocol.WeightedRedundancy(agree, weights)
	require.InDelta(t, 3.0/4.0, r, 1e-9)
}

func TestVoterWeightRewardsOverlapAndDomainMatch(t *testing.T) {
	base := protocol.VoterWeight(protocol.VoterWeightInput{Accuracy: 0.5})
	withOverlap := protocol.VoterWeight(protocol.VoterWeightInput{Accuracy: 0.5, PrimeOverlap: 2})
	withDomain := protocol.VoterWeight(protocol.VoterWeightInput{Accuracy: 0.5, DomainMatch: true})
	require.Greater(t, withOverlap, base)
	require.Greater(t, withDomain, base)
}
