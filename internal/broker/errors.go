package broker

import "github.com/dsnproject/dsn-core/internal/dsnerr"

// ErrNotConnected is returned by MemoryBroker operations called before
// Connect or after Disconnect (spec.md §4.C). FileBroker does not track a
// connection state and never returns it.
var ErrNotConnected = dsnerr.ErrBrokerNotConnected
