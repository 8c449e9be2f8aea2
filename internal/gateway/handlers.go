package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dcc/internal/copilot"
	"dcc/internal/metrics"
	"dcc/internal/stream"
)

type chatRequest struct {
	Question string         `json:"question"`
	History  []copilot.Turn `json:"history"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, `{"error":"question is required"}`, http.StatusBadRequest)
		return
	}

	start := time.Now()
	out := NewNDJSONWriter(w)
	var sentError bool

	err := s.responder.Respond(r.Context(), copilot.ChatRequest{
		Query:   req.Question,
		History: req.History,
	}, func(ev stream.Event) error {
		if ev.Type == stream.KindError {
			sentError = true
		}
		return out.Send(ev)
	})

	status := "ok"
	if err != nil {
		status = "error"
		slog.Warn("gateway: stream failed", "responder", s.responder.Name(), "error", err)
		if !sentError && r.Context().Err() == nil {
			out.Send(stream.ErrorEvent(err.Error()))
		}
	}
	metrics.ObserveGatewayStream(s.responder.Name(), status, time.Since(start))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
