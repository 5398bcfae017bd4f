package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dsnproject/dsn-core/internal/logging"
)

// Server wires a Hub behind the wire contract LongPollTransport and
// SSETransport expect (spec.md §4.D / §6).
type Server struct {
	hub         *Hub
	log         logging.Logger
	pollTimeout time.Duration
}

// NewServer builds a Server; pollTimeout bounds how long GET /poll/{id}
// blocks before returning an empty message list.
func NewServer(pollTimeout time.Duration, log logging.Logger) *Server {
	if log == nil {
		log = logging.NoOp()
	}
	return &Server{hub: NewHub(log), log: log, pollTimeout: pollTimeout}
}

// Router builds the gorilla/mux router exposing the demo endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/session", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/session/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/poll/{id}", s.handlePoll).Methods(http.MethodGet)
	r.HandleFunc("/send", s.handleSend).Methods(http.MethodPost)
	r.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	return r
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.hub.Create()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionResponse{SessionID: id})
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.hub.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

type pollResponse struct {
	Messages []json.RawMessage `json:"messages"`
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	raw, ok := s.hub.Poll(r.Context(), id, s.pollTimeout)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	resp := pollResponse{Messages: make([]json.RawMessage, len(raw))}
	for i, m := range raw {
		resp.Messages[i] = json.RawMessage(m)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	sid := r.Header.Get("X-Session-Id")
	if sid == "" {
		http.Error(w, "missing X-Session-Id", http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ok := s.hub.Send(sid, data); !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleStream implements the SSE variant: it creates a session, emits a
// "session" event carrying that id, then forwards every subsequent message
// as a bare data-only event (matching SSETransport.dispatch's default
// case).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	id := s.hub.Create()
	ch, _ := s.hub.Subscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sessionPayload, _ := json.Marshal(sessionResponse{SessionID: id})
	fmt.Fprintf(w, "event: session\ndata: %s\n\n", sessionPayload)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.hub.Close(id)
			return
		case msg := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
