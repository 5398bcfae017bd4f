package syncer

import "github.com/dsnproject/dsn-core/internal/prime"

// PartitionPrimeDomain partitions the first totalPrimes primes into
// networkSize disjoint contiguous slices and returns nodeIndex's share
// (spec.md §4.H: "optional specialization aid"). Any remainder is
// distributed one-per-slice to the earliest indices, so slices differ in
// size by at most one entry.
func PartitionPrimeDomain(totalPrimes, networkSize, nodeIndex int) []int {
	if networkSize <= 0 || nodeIndex < 0 || nodeIndex >= networkSize || totalPrimes <= 0 {
		return nil
	}
	primes := prime.NthPrimes(totalPrimes)

	base := totalPrimes / networkSize
	extra := totalPrimes % networkSize

	start := 0
	for i := 0; i < nodeIndex; i++ {
		size := base
		if i < extra {
			size++
		}
		start += size
	}
	size := base
	if nodeIndex < extra {
		size++
	}
	end := start + size
	if end > len(primes) {
		end = len(primes)
	}
	return primes[start:end]
}

// SetNetworkPosition records this node's place in a fixed-size network so
// GetMyPrimeDomain can compute its slice on demand.
func (n *Node) SetNetworkPosition(networkSize, nodeIndex, totalPrimes int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.networkSize = networkSize
	n.nodeIndex = nodeIndex
	n.totalPrimes = totalPrimes
	n.primeDomain = PartitionPrimeDomain(totalPrimes, networkSize, nodeIndex)
}

// GetMyPrimeDomain returns the prime-domain slice assigned by the last
// SetNetworkPosition call, or nil if the node's position was never set.
func (n *Node) GetMyPrimeDomain() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.primeDomain...)
}
