// Package aiservice serves the AI grading and hint endpoints consumed by
// ai.RemoteClient, backed by any ai.Backend (normally the LLM client).
package aiservice

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Yiteng-CHEN/snaplearn/internal/ai"
	"github.com/Yiteng-CHEN/snaplearn/internal/i18n"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

const maxBodyBytes = 1 << 20

// Server exposes an ai.Backend over HTTP.
type Server struct {
	backend ai.Backend
}

// New creates a Server.
func New(backend ai.Backend) *Server {
	return &Server{backend: backend}
}

// Routes registers the endpoints.
func (s *Server) Routes(r chi.Router) {
	r.Post("/grade", s.handleGrade)
	r.Post("/ask", s.handleAsk)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

type gradeRequest struct {
	Question        string          `json:"question"`
	Answer          string          `json:"answer"`
	ReferenceAnswer string          `json:"reference_answer"`
	MaxScore        json.RawMessage `json:"max_score"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// handleGrade always answers 200. Failures score 0 with the reason in the comment.
func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.gradeFailed(w, r, "invalid request body: "+err.Error())
		return
	}
	res, err := s.backend.Grade(r.Context(), ai.GradeRequest{
		Question:        req.Question,
		Answer:          req.Answer,
		ReferenceAnswer: req.ReferenceAnswer,
		MaxScore:        parseMaxScore(req.MaxScore),
	})
	if err != nil {
		slog.Error("grading failed", "error", err)
		s.gradeFailed(w, r, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) gradeFailed(w http.ResponseWriter, r *http.Request, reason string) {
	writeJSON(w, http.StatusOK, ai.GradeResult{
		Score:   0,
		Comment: i18n.T(r.Context(), "AIGradingFailed") + ": " + reason,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	answer, err := s.backend.Ask(r.Context(), req.Question)
	if err != nil {
		slog.Error("ask failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}

// parseMaxScore accepts a JSON number or numeric string. Anything else,
// including a non-positive value, yields the default question score.
func parseMaxScore(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return model.DefaultQuestionScore
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.DefaultQuestionScore
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return model.DefaultQuestionScore
		}
		f = parsed
	default:
		return model.DefaultQuestionScore
	}
	if !(f > 0) {
		return model.DefaultQuestionScore
	}
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
