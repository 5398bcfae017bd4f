// Package gmf implements the Generalized Memory Field: a content-
// addressed weighted object store with a delta log for incremental sync,
// plus the bounded proposal log (spec.md §4.G).
package gmf

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/field"
	"github.com/dsnproject/dsn-core/internal/semantic"
)

// EventEntryInserted and EventEntryWeightUpdated fire on every mutation,
// mirroring the channel/transport packages' pattern of a per-component bus
// rather than a global emitter (spec.md §9).
const (
	EventEntryInserted      events.Kind = "gmf_entry_inserted"
	EventEntryWeightUpdated events.Kind = "gmf_entry_weight_updated"
)

// Entry is one object held in the field, along with its weight and access
// bookkeeping (spec.md §4.G).
type Entry struct {
	ID          string
	Object      *semantic.Object
	Weight      float64
	Metadata    map[string]any
	InsertedAt  time.Time
	AccessCount int64

	// Placeholder marks an entry created by applying a remote insert delta
	// before the actual object has been rehydrated (spec.md §4.G: "insert
	// deltas require separate object transport... absent objects stay
	// referenced as placeholders with weight 0 until rehydrated").
	Placeholder bool
}

// GMF is the object store. Unbounded by design (spec.md §5); stewardship
// is via weight decay and snapshot compaction, both driven externally by
// the synchronizer.
type GMF struct {
	bus *events.Bus

	mu         sync.RWMutex
	entries    map[string]*Entry
	deltas     []Delta
	snapshotID int64
}

// New constructs an empty GMF.
func New() *GMF {
	return &GMF{
		bus:     events.NewBus(),
		entries: make(map[string]*Entry),
	}
}

func (g *GMF) Events() *events.Bus { return g.bus }

// Insert writes obj at weight, appends an insert delta, and returns the
// assigned id (the object's own stable id).
func (g *GMF) Insert(obj *semantic.Object, weight float64, metadata map[string]any) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.entries[obj.ID] = &Entry{
		ID:         obj.ID,
		Object:     obj,
		Weight:     weight,
		Metadata:   metadata,
		InsertedAt: now,
	}
	g.snapshotID++
	g.deltas = append(g.deltas, Delta{
		Kind:       DeltaInsert,
		ID:         obj.ID,
		Weight:     weight,
		SnapshotID: g.snapshotID,
		Timestamp:  now,
	})
	g.bus.Publish(events.Event{Kind: EventEntryInserted, Data: obj.ID})
	return obj.ID
}

// UpdateWeight mutates id's weight and appends an update_weight delta.
func (g *GMF) UpdateWeight(id string, w float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[id]
	if !ok {
		return fmt.Errorf("gmf: update weight: unknown id %q", id)
	}
	e.Weight = w
	g.snapshotID++
	g.deltas = append(g.deltas, Delta{
		Kind:       DeltaUpdateWeight,
		ID:         id,
		Weight:     w,
		SnapshotID: g.snapshotID,
		Timestamp:  time.Now(),
	})
	g.bus.Publish(events.Event{Kind: EventEntryWeightUpdated, Data: id})
	return nil
}

// Get returns a copy of id's entry, bumping its access count.
func (g *GMF) Get(id string) (Entry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[id]
	if !ok {
		return Entry{}, false
	}
	e.AccessCount++
	return *e, true
}

// Len returns the number of entries currently held.
func (g *GMF) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// RehydrateObject fills in a placeholder entry's object once it has been
// fetched on demand (spec.md §4.G).
func (g *GMF) RehydrateObject(obj *semantic.Object, weight float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[obj.ID]
	if !ok || !e.Placeholder {
		return
	}
	e.Object = obj
	e.Weight = weight
	e.Placeholder = false
}

// SimilarResult is one scored hit from QuerySimilar.
type SimilarResult struct {
	ID         string
	Similarity float64
}

// QuerySimilar scans entries whose metadata carries a "vector" key holding
// a []float64, scores them by cosine similarity against query, and
// returns the top maxResults scoring strictly above threshold, sorted
// descending (spec.md §4.G).
func (g *GMF) QuerySimilar(query []float64, threshold float64, maxResults int) []SimilarResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var results []SimilarResult
	for id, e := range g.entries {
		vec, ok := e.Metadata["vector"].([]float64)
		if !ok {
			continue
		}
		sim := field.CosineSimilarity(query, vec)
		if sim > threshold {
			results = append(results, SimilarResult{ID: id, Similarity: sim})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}
