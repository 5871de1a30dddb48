package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/orchestrator"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/sanitize"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/store"
)

// HealthResponse is returned by the health endpoints. The public endpoint
// only populates Status.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version,omitempty"`
	Clients        int    `json:"clients,omitempty"`
	ActiveSessions int    `json:"activeSessions,omitempty"`
	UptimeSeconds  int64  `json:"uptimeSeconds,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Version:        s.version,
		Clients:        s.clients.Count(),
		ActiveSessions: s.chat.ActiveSessions(),
		UptimeSeconds:  int64(s.now().Sub(s.startedAt).Seconds()),
	})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, &ErrorShape{Code: "NOT_FOUND", Message: "not found: " + r.URL.Path})
}

// handleChat runs one single-shot turn. A request without a session id
// starts a new session; the id comes back in the response.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, &ErrorShape{Code: string(domain.KindInvalidInput), Message: "invalid request body: " + err.Error()})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	res, err := s.chat.Handle(r.Context(), req.raw(s.now()), orchestrator.Options{
		Mode: domain.Mode(req.Mode),
		Path: sanitize.PathBatch,
	})
	if err != nil {
		s.log.Debug().Err(err).Str("session", req.SessionID).Msg("turn failed")
	}
	writeJSON(w, statusFor(err), ChatResponse{Result: res, Error: errorShape(err)})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	if s.records == nil {
		writeError(w, http.StatusServiceUnavailable, &ErrorShape{Code: "UNAVAILABLE", Message: "record store not configured"})
		return
	}

	q := store.Query{
		SessionID: r.URL.Query().Get("session"),
		Outcome:   domain.Outcome(r.URL.Query().Get("outcome")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, &ErrorShape{Code: string(domain.KindInvalidInput), Message: "limit must be a non-negative integer"})
			return
		}
		q.Limit = n
	}

	recs, err := s.records.List(r.Context(), q)
	if err != nil {
		s.log.Error().Err(err).Msg("listing records failed")
		writeError(w, http.StatusInternalServerError, &ErrorShape{Code: string(domain.KindUnknown), Message: "listing records failed"})
		return
	}
	if recs == nil {
		recs = []domain.TurnRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

// handleChatStream upgrades to a websocket and runs streamed turns, one per
// client frame, in order. A request without a session id uses the
// connection id. Closing the socket cancels the turn in progress.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxRequestBytes)
	conn.SetReadDeadline(time.Time{})

	client := NewClient(conn)
	s.clients.Add(client)
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan []byte)
	go func() {
		defer cancel()
		defer close(frames)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Debug().Err(err).Str("connId", client.ConnID).Msg("read error")
				}
				return
			}
			select {
			case frames <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for msg := range frames {
		var req ChatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			if client.Send(Frame{Type: FrameTypeError, Error: &ErrorShape{
				Code: string(domain.KindInvalidInput), Message: "invalid frame: " + err.Error(),
			}}) != nil {
				return
			}
			continue
		}
		if req.SessionID == "" {
			req.SessionID = client.ConnID
		}
		if !s.streamTurn(ctx, client, req) {
			return
		}
	}
}

// streamTurn relays one turn to the client. It returns false once the
// connection is unusable.
func (s *Server) streamTurn(ctx context.Context, client *Client, req ChatRequest) bool {
	events, err := s.chat.HandleStream(ctx, req.raw(s.now()), orchestrator.Options{
		Mode: domain.Mode(req.Mode),
		Path: sanitize.PathStream,
	})
	if err != nil {
		return client.Send(Frame{Type: FrameTypeError, Error: errorShape(err)}) == nil
	}

	for ev := range events {
		f := Frame{Type: FrameTypeDelta, Text: ev.Text}
		if ev.Done {
			f = Frame{Type: FrameTypeDone, Result: ev.Result, Error: errorShape(ev.Err)}
		}
		if err := client.Send(f); err != nil {
			s.log.Debug().Err(err).Str("connId", client.ConnID).Msg("stream write failed")
			return false
		}
	}
	return ctx.Err() == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, e *ErrorShape) {
	writeJSON(w, status, map[string]any{"error": e})
}
