package server

import (
	"encoding/json"
	"net/http"
	"time"

	"clarion/internal/core"
	"clarion/internal/pipeline"
)

// answerRequest is the body of POST /api/answer. Plan is optional; when the
// client already holds one from /api/search it skips re-planning.
type answerRequest struct {
	Query  string     `json:"query"`
	UserID string     `json:"userId"`
	Plan   *core.Plan `json:"plan,omitempty"`
}

// handleSearch runs plan + search and returns the merged hit list.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	plan, hits, err := s.pipeline.SearchOnly(r.Context(), query)
	if err != nil {
		s.log.Error("search request failed", "query", query, "error", err.Error())
		s.writeError(w, http.StatusBadGateway, "search failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"plan":    plan,
		"results": hits,
	})
}

// handleAnswer streams the full pipeline as server-sent events. Each frame is
// one "data:" line carrying a JSON envelope; the stream ends after exactly
// one complete or error frame.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The pipeline emits into a buffered channel so a slow client cannot
	// stall the LLM stream; this handler goroutine drains and writes.
	frames := make(chan pipeline.Event, 256)
	go func() {
		defer close(frames)
		s.pipeline.Answer(r.Context(), pipeline.Request{
			Query:  req.Query,
			UserID: req.UserID,
			Plan:   req.Plan,
		}, func(event pipeline.Event) {
			select {
			case frames <- event:
			case <-r.Context().Done():
			}
		})
	}()

	encoder := json.NewEncoder(w)
	for event := range frames {
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if err := encoder.Encode(event); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}

// handleIngestEvent appends one interaction event.
func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	var event core.UserEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid event body")
		return
	}

	if err := s.store.Ingest(r.Context(), event); err != nil {
		s.log.Error("event ingest failed", "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "failed to store event")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleListEvents returns one user's event history in timestamp order.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter userId")
		return
	}

	list, err := s.store.ListByUser(r.Context(), userID)
	if err != nil {
		s.log.Error("event listing failed", "userId", userID, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	s.writeJSON(w, http.StatusOK, list)
}

// handleGetPreferences reports a user's learned preferences: the top arms by
// score plus the raw evidence behind them.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter userId")
		return
	}

	count, err := s.store.CountByUser(r.Context(), userID)
	if err != nil {
		s.log.Error("event count failed", "userId", userID, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}

	userBandit := s.store.Bandit(userID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"userId":             userID,
		"topArms":            userBandit.TopK(5),
		"armStats":           userBandit.Stats(),
		"totalInteractions":  count,
		"pendingImpressions": userBandit.PendingCount(),
	})
}

// handleResetPreferences wipes a user's events and bandit state.
func (s *Server) handleResetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter userId")
		return
	}

	if err := s.store.Reset(r.Context(), userID); err != nil {
		s.log.Error("preference reset failed", "userId", userID, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "failed to reset preferences")
		return
	}

	s.log.Info("user preferences reset", "userId", userID)
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus reports runtime configuration and counters.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	totalEvents, err := s.store.TotalEvents(r.Context())
	if err != nil {
		s.log.Error("status query failed", "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "failed to read status")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"searchProvider": s.info.SearchProvider,
		"model":          s.info.Model,
		"totalEvents":    totalEvents,
		"uptimeSeconds":  int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("failed to encode response", "error", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}
