package gmf

import "time"

// DeltaKind distinguishes the two delta log entry kinds (spec.md §4.G).
type DeltaKind string

const (
	DeltaInsert       DeltaKind = "insert"
	DeltaUpdateWeight DeltaKind = "update_weight"
)

// Delta is one entry of the GMF's delta log.
type Delta struct {
	Kind       DeltaKind
	ID         string
	Weight     float64
	SnapshotID int64
	Timestamp  time.Time
}

// GetDeltasSince returns every delta with SnapshotID > snapID, in commit
// order (spec.md §5: "delta log order equals commit order").
func (g *GMF) GetDeltasSince(snapID int64) []Delta {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Delta
	for _, d := range g.deltas {
		if d.SnapshotID > snapID {
			out = append(out, d)
		}
	}
	return out
}

// ApplyDeltas replays deltas against the local store. update_weight is
// idempotent (it is a plain set, not an increment); insert deltas for
// objects not yet known locally create a weight-0 placeholder entry
// pending rehydration (spec.md §4.G).
func (g *GMF) ApplyDeltas(deltas []Delta) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, d := range deltas {
		switch d.Kind {
		case DeltaInsert:
			if _, ok := g.entries[d.ID]; ok {
				continue
			}
			g.entries[d.ID] = &Entry{
				ID:          d.ID,
				Weight:      0,
				InsertedAt:  d.Timestamp,
				Placeholder: true,
			}
		case DeltaUpdateWeight:
			if e, ok := g.entries[d.ID]; ok {
				e.Weight = d.Weight
			} else {
				g.entries[d.ID] = &Entry{
					ID:          d.ID,
					Weight:      d.Weight,
					InsertedAt:  d.Timestamp,
					Placeholder: true,
				}
			}
		}
		if d.SnapshotID > g.snapshotID {
			g.snapshotID = d.SnapshotID
		}
	}
}
