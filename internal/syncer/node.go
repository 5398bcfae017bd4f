// Package syncer implements the synchronizer and node facade: submission,
// vote aggregation, finalization, join/reconnect/offline, and prime-domain
// partitioning (spec.md §4.H). It is the only component allowed to mutate
// the GMF object map, delta log, and proposal log (spec.md §5).
package syncer

import (
	"sync"
	"time"

	"github.com/dsnproject/dsn-core/internal/channel"
	"github.com/dsnproject/dsn-core/internal/config"
	"github.com/dsnproject/dsn-core/internal/events"
	"github.com/dsnproject/dsn-core/internal/field"
	"github.com/dsnproject/dsn-core/internal/gmf"
	"github.com/dsnproject/dsn-core/internal/logging"
	"github.com/dsnproject/dsn-core/internal/metrics"
	"github.com/dsnproject/dsn-core/internal/protocol"
)

// Event kinds forwarded on a Node's Bus (spec.md §4.H).
const (
	EventObjectReceived   events.Kind = "object_received"
	EventProposalVoted    events.Kind = "proposal_voted"
	EventProposalAccepted events.Kind = "proposal_accepted"
	EventProposalRejected events.Kind = "proposal_rejected"
	EventSyncStarted      events.Kind = "sync_started"
	EventSyncComplete     events.Kind = "sync_complete"
	EventResyncStarted    events.Kind = "resync_started"
	EventResyncComplete   events.Kind = "resync_complete"
	EventOffline          events.Kind = "offline"
)

// ProposalRejected is the payload of EventProposalRejected.
type ProposalRejected struct {
	ProposalID string
	Reason     string
}

// ResyncComplete is the payload of EventResyncComplete.
type ResyncComplete struct {
	PeerID        string
	ReplayedCount int
}

// Node is the facade spec.md §4.H describes: it owns a Channel, a GMF, a
// ProposalLog, a local Field, and an AccuracyTracker, and is the only
// component permitted to mutate the GMF, the ProposalLog and the Field
// (spec.md §5). The
// synchronizer subscribes to the channel's events one-way — the channel
// never holds a reference back to the Node, breaking the cyclic reference
// spec.md §9 calls out.
type Node struct {
	nodeID string
	cfg    config.Config

	log logging.Logger
	met metrics.Recorder
	bus *events.Bus

	ch          *channel.Channel
	store       *gmf.GMF
	proposals   *gmf.ProposalLog
	field       *field.Field
	accuracy    *protocol.AccuracyTracker

	mu           sync.Mutex
	online       bool
	voteTimers   map[string]*time.Timer
	lastSyncedID map[string]int64 // peerID -> last applied peer snapshotID

	networkSize, nodeIndex, totalPrimes int
	primeDomain                         []int
}

// New constructs a Node for nodeID participating in channelID, with the
// given local prime set and phase reference (both fed into the channel's
// handshake envelope).
func New(nodeID, channelID string, primeSet []int, phaseReference float64, cfg config.Config, log logging.Logger, met metrics.Recorder) *Node {
	if log == nil {
		log = logging.NoOp()
	}
	if met == nil {
		met = metrics.NoOp()
	}
	n := &Node{
		nodeID:       nodeID,
		cfg:          cfg,
		log:          log,
		met:          met,
		bus:          events.NewBus(),
		ch:           channel.New(nodeID, channelID, primeSet, phaseReference, log),
		store:        gmf.New(),
		proposals:    gmf.NewProposalLog(cfg.ProposalLogCap),
		field:        field.New(nodeID),
		accuracy:     protocol.NewAccuracyTracker(),
		voteTimers:   make(map[string]*time.Timer),
		lastSyncedID: make(map[string]int64),
	}
	n.ch.SetLocalDomain(n.field.Snapshot().SemanticDomain, 0)
	n.ch.Events().Subscribe(channel.EventProposal, func(e events.Event) {
		in, ok := e.Data.(channel.InboundProposal)
		if !ok {
			return
		}
		n.onProposalReceived(in.PeerID, in.Message)
	})
	n.ch.Events().Subscribe(channel.EventVote, func(e events.Event) {
		in, ok := e.Data.(channel.InboundVote)
		if !ok {
			return
		}
		n.onVoteReceived(in.PeerID, in.Message)
	})
	n.ch.Events().Subscribe(channel.EventObject, func(e events.Event) {
		in, ok := e.Data.(channel.InboundObject)
		if !ok {
			return
		}
		n.onObjectReceived(in.PeerID, in.Message)
	})
	return n
}

func (n *Node) Events() *events.Bus { return n.bus }

// NodeID returns the node's own identifier.
func (n *Node) NodeID() string { return n.nodeID }

// Channel returns the underlying peer multiplexer, for callers that need
// to Connect/Disconnect peers directly.
func (n *Node) Channel() *channel.Channel { return n.ch }

// Store returns the underlying GMF, for read-only inspection (QuerySimilar,
// Get, Len) by callers such as a status endpoint.
func (n *Node) Store() *gmf.GMF { return n.store }

// ProposalLog returns the underlying bounded proposal log.
func (n *Node) ProposalLog() *gmf.ProposalLog { return n.proposals }

// Field returns the node's local semantic field state.
func (n *Node) Field() *field.Field { return n.field }

// Online reports whether the node currently considers itself connected to
// the network (spec.md §4.H).
func (n *Node) Online() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online
}

func (n *Node) onObjectReceived(peerID string, msg channel.ObjectMessage) {
	n.bus.Publish(events.Event{Kind: EventObjectReceived, Data: msg})
}
