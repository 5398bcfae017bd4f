package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dsnproject/dsn-core/internal/logging"
)

// WebSocketTransport dials a single ws/wss endpoint and runs a read loop
// plus a 30s ping heartbeat while connected (spec.md §4.D, §6).
type WebSocketTransport struct {
	*Core

	url          string
	dialer       *websocket.Dialer
	pingInterval time.Duration

	mu         sync.Mutex
	conn       *websocket.Conn
	stopReader chan struct{}
	closed     bool
}

// NewWebSocketTransport constructs a transport that will dial url on
// Connect.
func NewWebSocketTransport(url string, queueCap int, baseDelay time.Duration, maxAttempts int, pingInterval time.Duration, log logging.Logger) *WebSocketTransport {
	return &WebSocketTransport{
		Core:         NewCore(queueCap, baseDelay, maxAttempts, log),
		url:          url,
		dialer:       websocket.DefaultDialer,
		pingInterval: pingInterval,
	}
}

func (t *WebSocketTransport) Connect(ctx context.Context) error {
	if t.State() == Connected {
		return nil
	}
	t.SetState(Connecting)
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		t.SetState(Error)
		go t.reconnectLoop()
		return err
	}
	t.mu.Lock()
	t.conn = conn
	t.stopReader = make(chan struct{})
	stop := t.stopReader
	t.mu.Unlock()

	t.SetState(Connected)
	go t.readLoop(conn, stop)
	go t.pingLoop(conn, stop)
	t.Drain(t.writeFrame)
	return nil
}

func (t *WebSocketTransport) readLoop(conn *websocket.Conn, stop chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			t.SetState(Reconnecting)
			go t.reconnectLoop()
			return
		}
		t.EmitMessage(data)
	}
}

func (t *WebSocketTransport) pingLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(t.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (t *WebSocketTransport) reconnectLoop() {
	for {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return
		}
		attempt := t.IncrementReconnectAttempts()
		if attempt > t.MaxAttempts() {
			t.SetState(Closed)
			t.EmitMaxReconnectExceeded()
			return
		}
		time.Sleep(t.NextBackoff(attempt))
		if err := t.Connect(context.Background()); err == nil {
			return
		}
	}
}

func (t *WebSocketTransport) writeFrame(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrTransportNotReady
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	t.RecordSent(len(data))
	return nil
}

func (t *WebSocketTransport) Send(ctx context.Context, data []byte, opts SendOptions) error {
	if t.State() != Connected {
		if !opts.Queue {
			return ErrTransportNotReady
		}
		t.Enqueue(data)
		return nil
	}
	return t.writeFrame(data)
}

func (t *WebSocketTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	stop := t.stopReader
	t.conn = nil
	t.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	if conn != nil {
		_ = conn.Close()
	}
	t.SetState(Disconnected)
	return nil
}

func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	_ = t.Disconnect(context.Background())
	t.SetState(Closed)
	return nil
}
