// Package transport implements the transport-agnostic contract every
// transport variant satisfies (spec.md §4.D): websocket, HTTP long-poll,
// SSE, a WebRTC data-channel adapter, and an in-process pair, plus a
// fallback-selecting Manager.
package transport

// State is a transport's lifecycle state.
type State uint8

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Closed
	Error
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Closed:
		return "closed"
	case Error:
		return "error"
	default:
		return "invalid"
	}
}
