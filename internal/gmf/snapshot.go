package gmf

import (
	"sort"
	"time"
)

// SnapshotEntry is one compact entry of a snapshot header.
type SnapshotEntry struct {
	ID         string
	NFSignature string
	Weight     float64
	InsertedAt time.Time
}

// SnapshotHeader is the compact summary Snapshot returns: enough to drive
// a peer's getDeltasSince/applyDeltas catch-up without shipping every
// object body (spec.md §4.G).
type SnapshotHeader struct {
	ID          int64
	Timestamp   time.Time
	ObjectCount int
	Entries     []SnapshotEntry
}

// Snapshot bumps the snapshotId, clears the delta log (every delta up to
// now is now implied by the returned header), and returns the compact
// header.
func (g *GMF) Snapshot() SnapshotHeader {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.snapshotID++
	entries := make([]SnapshotEntry, 0, len(g.entries))
	for id, e := range g.entries {
		if e.Placeholder {
			continue
		}
		entries = append(entries, SnapshotEntry{
			ID:          id,
			NFSignature: e.Object.Term.Signature(),
			Weight:      e.Weight,
			InsertedAt:  e.InsertedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	g.deltas = nil
	return SnapshotHeader{
		ID:          g.snapshotID,
		Timestamp:   time.Now(),
		ObjectCount: len(g.entries),
		Entries:     entries,
	}
}

// SnapshotID returns the current sequence value without mutating it. Every
// Insert, UpdateWeight and Snapshot advances it by one.
func (g *GMF) SnapshotID() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotID
}
