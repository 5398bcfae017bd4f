package transport

import "github.com/dsnproject/dsn-core/internal/dsnerr"

var (
	ErrTransportNotReady   = dsnerr.ErrTransportNotReady
	ErrTransportSendFailed = dsnerr.ErrTransportSendFailed
	ErrReconnectExceeded   = dsnerr.ErrReconnectExceeded
)
