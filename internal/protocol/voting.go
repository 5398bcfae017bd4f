package protocol

import "sync"

// laplaceCorrectPrior and laplaceTotalPrior fix spec.md §9's suggested
// cold-start prior of "(1, 2)" — one correct vote out of two — so a
// never-before-seen voter starts at weight 0.5 instead of 0.
const (
	laplaceCorrectPrior = 1.0
	laplaceTotalPrior   = 2.0
)

// accuracyRecord tracks one voter's running correct/total tally.
type accuracyRecord struct {
	correct float64
	total   float64
}

// AccuracyTracker maintains per-voter historical accuracy with Laplace
// smoothing, updated via RecordVoteOutcome after each finalization
// (spec.md §4.F).
type AccuracyTracker struct {
	mu      sync.Mutex
	records map[string]accuracyRecord
}

// NewAccuracyTracker returns an empty tracker.
func NewAccuracyTracker() *AccuracyTracker {
	return &AccuracyTracker{records: make(map[string]accuracyRecord)}
}

// Accuracy returns nodeID's Laplace-smoothed historical accuracy:
// (correct + 1) / (total + 2).
func (a *AccuracyTracker) Accuracy(nodeID string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := a.records[nodeID]
	return (r.correct + laplaceCorrectPrior) / (r.total + laplaceTotalPrior)
}

// RecordVoteOutcome updates nodeID's tally after a proposal finalizes and
// it is known whether the voter's agreement matched the final outcome.
func (a *AccuracyTracker) RecordVoteOutcome(nodeID string, wasCorrect bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := a.records[nodeID]
	r.total++
	if wasCorrect {
		r.correct++
	}
	a.records[nodeID] = r
}

// VoterWeightInput bundles the three inputs spec.md §4.F names for a
// voter's weight: prime-domain overlap with the proposal, per-voter
// historical accuracy, and semantic-domain match.
type VoterWeightInput struct {
	PrimeOverlap int
	Accuracy     float64
	DomainMatch  bool
}

// VoterWeight combines the three spec.md §4.F signals into a single
// scalar. Spec.md names the three inputs without fixing a formula; this
// implementation uses accuracy as the base (it is already a smoothed
// probability in [0,1]), scaled up by prime-domain overlap (each shared
// prime adds 10% weight), with a flat 20% bonus for a semantic-domain
// match — giving accuracy the dominant influence while still rewarding
// topical relevance.
func VoterWeight(in VoterWeightInput) float64 {
	w := in.Accuracy * (1.0 + 0.1*float64(in.PrimeOverlap))
	if in.DomainMatch {
		w *= 1.2
	}
	return w
}

// WeightedRedundancy computes Σ(weight·agreeIndicator) / Σ(weight) over
// the given per-voter agreement and weight maps (spec.md §4.F). Voters
// absent from weights are skipped. Returns 0 if the weight sum is 0.
func WeightedRedundancy(agree map[string]bool, weights map[string]float64) float64 {
	var num, den float64
	for voter, w := range weights {
		den += w
		if agree[voter] {
			num += w
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}
