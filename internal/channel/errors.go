package channel

import "github.com/dsnproject/dsn-core/internal/dsnerr"

// ErrPeerNotConnected is returned by any send operation targeting a peer
// absent from the registry or not yet marked connected.
var ErrPeerNotConnected = dsnerr.ErrPeerNotConnected
