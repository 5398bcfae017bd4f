package gmf

import (
	"sync"
	"time"
)

// ProposalLog is the bounded, append-only log of proposals a node has
// originated or voted on (spec.md §4.G, §5). Capacity defaults to 10000;
// overflow drops the oldest entry.
type ProposalLog struct {
	cap int

	mu      sync.RWMutex
	order   []string
	entries map[string]*Proposal
}

// NewProposalLog constructs a log bounded at cap entries.
func NewProposalLog(cap int) *ProposalLog {
	if cap < 1 {
		cap = 10000
	}
	return &ProposalLog{
		cap:     cap,
		entries: make(map[string]*Proposal),
	}
}

// Append adds p to the log in submission order. If the log is at capacity
// the oldest entry is dropped and its id returned as droppedID.
func (l *ProposalLog) Append(p *Proposal) (droppedID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.order = append(l.order, p.ID)
	l.entries[p.ID] = p

	if len(l.order) > l.cap {
		droppedID = l.order[0]
		l.order = l.order[1:]
		delete(l.entries, droppedID)
	}
	return droppedID
}

// Get returns the proposal with id, if still retained.
func (l *ProposalLog) Get(id string) (*Proposal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.entries[id]
	return p, ok
}

// Pending returns every proposal still awaiting finalization, in
// submission order.
func (l *ProposalLog) Pending() []*Proposal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Proposal
	for _, id := range l.order {
		if p := l.entries[id]; p.Status == StatusPending {
			out = append(out, p)
		}
	}
	return out
}

// Since returns every proposal submitted at or after ts, in submission
// order.
func (l *ProposalLog) Since(ts time.Time) []*Proposal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Proposal
	for _, id := range l.order {
		p := l.entries[id]
		if !p.Timestamp.Before(ts) {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of proposals currently retained.
func (l *ProposalLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}
