package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dsnproject/dsn-core/internal/logging"
)

// LongPollTransport implements the HTTP long-poll variant from spec.md
// §4.D / §6: POST /session to obtain a session id, GET /poll/{id} in a
// loop bounded by longPollTimeout, POST /send with header X-Session-Id for
// outbound messages.
type LongPollTransport struct {
	*Core

	baseURL     string
	client      *http.Client
	pollTimeout time.Duration
	pollGap     time.Duration

	mu        sync.Mutex
	sessionID string
	cancel    context.CancelFunc
	closed    bool
}

// NewLongPollTransport constructs a transport targeting baseURL (e.g.
// "http://peer:8080").
func NewLongPollTransport(baseURL string, queueCap int, baseDelay time.Duration, maxAttempts int, pollTimeout, pollGap time.Duration, log logging.Logger) *LongPollTransport {
	return &LongPollTransport{
		Core:        NewCore(queueCap, baseDelay, maxAttempts, log),
		baseURL:     baseURL,
		client:      &http.Client{Timeout: pollTimeout + 5*time.Second},
		pollTimeout: pollTimeout,
		pollGap:     pollGap,
	}
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

type pollResponse struct {
	Messages []json.RawMessage `json:"messages"`
}

func (t *LongPollTransport) Connect(ctx context.Context) error {
	if t.State() == Connected {
		return nil
	}
	t.SetState(Connecting)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/session", nil)
	if err != nil {
		t.SetState(Error)
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		t.SetState(Error)
		go t.reconnectLoop()
		return err
	}
	defer resp.Body.Close()
	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.SetState(Error)
		return err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.sessionID = sr.SessionID
	t.cancel = cancel
	t.mu.Unlock()

	t.SetState(Connected)
	go t.pollLoop(pollCtx)
	t.Drain(t.postSend)
	return nil
}

func (t *LongPollTransport) pollLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		t.mu.Lock()
		sid := t.sessionID
		t.mu.Unlock()

		pollCtx, cancel := context.WithTimeout(ctx, t.pollTimeout)
		req, err := http.NewRequestWithContext(pollCtx, http.MethodGet, t.baseURL+"/poll/"+sid, nil)
		if err != nil {
			cancel()
			return
		}
		resp, err := t.client.Do(req)
		cancel()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			t.SetState(Reconnecting)
			go t.reconnectLoop()
			return
		}
		var pr pollResponse
		_ = json.NewDecoder(resp.Body).Decode(&pr)
		resp.Body.Close()
		for _, msg := range pr.Messages {
			t.EmitMessage(msg)
		}
		time.Sleep(t.pollGap)
	}
}

func (t *LongPollTransport) reconnectLoop() {
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

func (t *LongPollTransport) postSend(data []byte) error {
	t.mu.Lock()
	sid := t.sessionID
	t.mu.Unlock()
	if sid == "" {
		return ErrTransportNotReady
	}
	req, err := http.NewRequest(http.MethodPost, t.baseURL+"/send", bytes.NewReader(data))
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
		return fmt.Errorf("%w: long-poll send status %d", ErrTransportSendFailed, resp.StatusCode)
	}
	t.RecordSent(len(data))
	return nil
}

func (t *LongPollTransport) Send(ctx context.Context, data []byte, opts SendOptions) error {
	if t.State() != Connected {
		if !opts.Queue {
			return ErrTransportNotReady
		}
		t.Enqueue(data)
		return nil
	}
	return t.postSend(data)
}

func (t *LongPollTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	sid := t.sessionID
	cancel := t.cancel
	t.sessionID = ""
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if sid != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, t.baseURL+"/session/"+sid, nil)
		if err == nil {
			if resp, err := t.client.Do(req); err == nil {
				resp.Body.Close()
			}
		}
	}
	t.SetState(Disconnected)
	return nil
}

func (t *LongPollTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	_ = t.Disconnect(context.Background())
	t.SetState(Closed)
	return nil
}
