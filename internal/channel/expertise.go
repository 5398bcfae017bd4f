package channel

import (
	"math"
	"sort"

	"github.com/dsnproject/dsn-core/internal/prime"
)

// SetExpertise sets the cached routing profile of the registered peer
// peerID, which RouteProposal scores against (spec.md §4.E leaves the
// exact out-of-band propagation of profiles to implementers). A peerID
// that is not in the registry is ignored.
func (c *Channel) SetExpertise(peerID string, profile *ExpertiseProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.peers[peerID]; ok {
		p.Expertise = profile
	}
}

// TermPrimes exposes extractPrimes to callers outside the package (the
// synchronizer needs it to score prime-domain overlap for VoterWeight).
func TermPrimes(t *prime.Term) []int { return extractPrimes(t) }

// extractPrimes collects every prime appearing anywhere in t: noun primes,
// adjective primes, chain components, and fusion triads (spec.md §4.E).
func extractPrimes(t *prime.Term) []int {
	seen := make(map[int]struct{})
	var walk func(*prime.Term)
	walk = func(t *prime.Term) {
		if t == nil {
			return
		}
		switch t.Kind() {
		case prime.KindNoun, prime.KindAdj:
			seen[t.Prime()] = struct{}{}
		case prime.KindChain:
			for _, p := range t.AdjPrimes() {
				seen[p] = struct{}{}
			}
			seen[t.NounPrime()] = struct{}{}
		case prime.KindFuse:
			p, q, r := t.Triad()
			seen[p] = struct{}{}
			seen[q] = struct{}{}
			seen[r] = struct{}{}
		case prime.KindSeq:
			walk(t.Left())
			walk(t.Right())
		case prime.KindImpl:
			walk(t.Antecedent())
			walk(t.Consequent())
		}
	}
	walk(t)
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// SetLocalDomain sets the local domain and SMF axis that RouteProposal
// compares against each peer's ExpertiseProfile.Domain and SMFAxis for the
// domain-match and axis-alignment bonuses. It is deliberately plain state rather than a config
// knob: routing domain is a per-node runtime fact (the node's current
// semantic-domain assignment), not a static tuning parameter.
func (c *Channel) SetLocalDomain(domain string, smfAxis int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.localDomain = domain
	c.localSMFAxis = smfAxis
}

// RouteProposal scores every peer with a cached expertise profile against
// the primes appearing in t, plus bonuses for SMF-axis alignment and
// domain match, and returns the top ⌈√|peers|⌉ scorers. If no peer scores
// positive, it falls back to every connected peer (spec.md §4.E).
func (c *Channel) RouteProposal(t *prime.Term) []Peer {
	primes := extractPrimes(t)
	primeSet := make(map[int]struct{}, len(primes))
	for _, p := range primes {
		primeSet[p] = struct{}{}
	}

	connected := c.ConnectedPeers()
	c.mu.RLock()
	localDomain := c.localDomain
	localAxis := c.localSMFAxis
	c.mu.RUnlock()

	type scored struct {
		peer  Peer
		score int
	}
	var candidates []scored
	for _, p := range connected {
		if p.Expertise == nil {
			continue
		}
		score := 0
		for _, dp := range p.Expertise.PrimeDomain {
			if _, ok := primeSet[dp]; ok {
				score++
			}
		}
		if p.Expertise.SMFAxis == localAxis {
			score++
		}
		if localDomain != "" && p.Expertise.Domain == localDomain {
			score++
		}
		if score > 0 {
			candidates = append(candidates, scored{peer: p, score: score})
		}
	}

	if len(candidates) == 0 {
		return connected
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].peer.ID < candidates[j].peer.ID
	})

	k := int(math.Ceil(math.Sqrt(float64(len(connected)))))
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]Peer, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, candidates[i].peer)
	}
	return out
}
