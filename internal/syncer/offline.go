package syncer

import "github.com/dsnproject/dsn-core/internal/events"

// Offline flips the node into local-only mode: Submit still appends to the
// proposal log but no longer broadcasts, and no network I/O occurs
// (spec.md §4.H).
func (n *Node) Offline() {
	n.mu.Lock()
	n.online = false
	n.mu.Unlock()
	n.bus.Publish(events.Event{Kind: EventOffline, Data: n.nodeID})
}
