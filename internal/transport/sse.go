package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dsnproject/dsn-core/internal/logging"
)

// SSETransport implements the Server-Sent-Events variant from spec.md
// §4.D / §6: GET /stream as an EventSource (the server emits a "session"
// event first carrying {sessionId}), outbound messages POST to the send
// URL with header X-Session-Id.
type SSETransport struct {
	*Core

	streamURL string
	sendURL   string
	client    *http.Client

	mu        sync.Mutex
	sessionID string
	cancel    context.CancelFunc
	closed    bool
}

// NewSSETransport constructs a transport against the given stream/send
// endpoints.
func NewSSETransport(streamURL, sendURL string, queueCap int, baseDelay time.Duration, maxAttempts int, log logging.Logger) *SSETransport {
	return &SSETransport{
		Core:      NewCore(queueCap, baseDelay, maxAttempts, log),
		streamURL: streamURL,
		sendURL:   sendURL,
		client:    &http.Client{},
	}
}

func (t *SSETransport) Connect(ctx context.Context) error {
	if t.State() == Connected {
		return nil
	}
	t.SetState(Connecting)
	streamCtx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.streamURL, nil)
	if err != nil {
		cancel()
		t.SetState(Error)
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := t.client.Do(req)
	if err != nil {
		cancel()
		t.SetState(Error)
		go t.reconnectLoop()
		return err
	}

	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	go t.readEvents(resp.Body, cancel)
	return nil
}

type sseEvent struct {
	name string
	data string
}

// readEvents parses the text/event-stream framing (blank-line-delimited
// records of "event: <name>" and "data: <payload>" lines) and dispatches
// each event. Closing the stream triggers reconnect unless the transport
// was explicitly closed.
func (t *SSETransport) readEvents(body io.ReadCloser, cancel context.CancelFunc) {
	defer body.Close()
	scanner := bufio.NewScanner(body)
	var cur sseEvent
	flush := func() {
		if cur.name == "" && cur.data == "" {
			return
		}
		t.dispatch(cur)
		cur = sseEvent{}
	}
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	flush()

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	t.SetState(Reconnecting)
	go t.reconnectLoop()
}

func (t *SSETransport) dispatch(e sseEvent) {
	switch e.name {
	case "session":
		var sr sessionResponse
		if err := json.Unmarshal([]byte(e.data), &sr); err == nil {
			t.mu.Lock()
			t.sessionID = sr.SessionID
			t.mu.Unlock()
			t.SetState(Connected)
			t.Drain(t.postSend)
		}
	default:
		t.EmitMessage([]byte(e.data))
	}
}

func (t *SSETransport) reconnectLoop() {
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

func (t *SSETransport) postSend(data []byte) error {
	t.mu.Lock()
	sid := t.sessionID
	t.mu.Unlock()
	if sid == "" {
		return ErrTransportNotReady
	}
	req, err := http.NewRequest(http.MethodPost, t.sendURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("X-Session-Id", sid)
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sse send status %d", ErrTransportSendFailed, resp.StatusCode)
	}
	t.RecordSent(len(data))
	return nil
}

func (t *SSETransport) Send(ctx context.Context, data []byte, opts SendOptions) error {
	if t.State() != Connected {
		if !opts.Queue {
			return ErrTransportNotReady
		}
		t.Enqueue(data)
		return nil
	}
	return t.postSend(data)
}

func (t *SSETransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.sessionID = ""
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	t.SetState(Disconnected)
	return nil
}

func (t *SSETransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	_ = t.Disconnect(context.Background())
	t.SetState(Closed)
	return nil
}
