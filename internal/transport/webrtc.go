package transport

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dsnproject/dsn-core/internal/logging"
)

// WebRTCTransport adapts a *webrtc.DataChannel whose peer connection and
// ICE negotiation are managed outside this package (spec.md §4.D treats
// WebRTC as a bring-your-own-signaling transport: this adapter only owns
// framing, backpressure and the Core state machine once a channel exists).
type WebRTCTransport struct {
	*Core

	mu      sync.Mutex
	channel *webrtc.DataChannel
	closed  bool
}

// NewWebRTCTransport wraps dc. dc must already belong to a peer connection
// that is negotiating or open; Connect blocks until dc reaches the Open
// state or ctx is cancelled.
func NewWebRTCTransport(dc *webrtc.DataChannel, queueCap int, log logging.Logger) *WebRTCTransport {
	t := &WebRTCTransport{
		Core:    NewCore(queueCap, 0, 0, log),
		channel: dc,
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.EmitMessage(msg.Data)
	})
	dc.OnClose(func() {
		t.SetState(Disconnected)
	})
	return t
}

func (t *WebRTCTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	dc := t.channel
	t.mu.Unlock()
	if dc == nil {
		return ErrTransportNotReady
	}
	if dc.ReadyState() == webrtc.DataChannelStateOpen {
		t.SetState(Connected)
		t.Drain(t.writeFrame)
		return nil
	}

	opened := make(chan struct{})
	var once sync.Once
	dc.OnOpen(func() { once.Do(func() { close(opened) }) })

	select {
	case <-opened:
		t.SetState(Connected)
		t.Drain(t.writeFrame)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *WebRTCTransport) writeFrame(data []byte) error {
	t.mu.Lock()
	dc := t.channel
	t.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrTransportNotReady
	}
	if err := dc.Send(data); err != nil {
		return err
	}
	t.RecordSent(len(data))
	return nil
}

func (t *WebRTCTransport) Send(ctx context.Context, data []byte, opts SendOptions) error {
	if t.State() != Connected {
		if !opts.Queue {
			return ErrTransportNotReady
		}
		t.Enqueue(data)
		return nil
	}
	return t.writeFrame(data)
}

// Disconnect marks the transport as disconnected without closing the
// underlying data channel, which the owning peer connection continues to
// manage (spec.md's boundary: signaling and ICE stay outside this package).
func (t *WebRTCTransport) Disconnect(ctx context.Context) error {
	t.SetState(Disconnected)
	return nil
}

func (t *WebRTCTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	dc := t.channel
	t.mu.Unlock()
	if dc != nil {
		_ = dc.Close()
	}
	t.SetState(Closed)
	return nil
}
