// Package api exposes the analysis pipeline over HTTP for one-shot use.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/opslens/opslens/internal/analysis"
	"github.com/opslens/opslens/internal/common"
	"github.com/opslens/opslens/internal/llm"
	"github.com/opslens/opslens/internal/report"
	"github.com/opslens/opslens/internal/source/export"
	"github.com/opslens/opslens/internal/ticket"
)

type Server struct {
	router   chi.Router
	provider llm.Provider
}

func NewServer(provider llm.Provider) *Server {
	srv := &Server{router: chi.NewRouter(), provider: provider}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/api/logs", s.handleLogs)
	s.router.Post("/api/analyze", s.handleAnalyze)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": common.LogEntries()})
}

type analyzeRequest struct {
	Path           string `json:"path"`
	MonthsBack     int    `json:"months_back"`
	MinOccurrences int    `json:"min_occurrences"`
	SkipAI         bool   `json:"skip_ai"`
	CIName         string `json:"ci_name"`
	User           string `json:"user"`
	Role           string `json:"role"`
}

type analyzeResponse struct {
	Summary  report.Summary          `json:"summary"`
	AIText   string                  `json:"ai_text,omitempty"`
	Patterns []analysis.Pattern      `json:"patterns,omitempty"`
	Gaps     []analysis.Gap          `json:"gaps,omitempty"`
	Timeline []report.TimelineEntry  `json:"timeline,omitempty"`
	Roles    []report.BucketedTicket `json:"roles,omitempty"`
	UsedAI   bool                    `json:"used_ai"`
}

// handleAnalyze runs the export-file pipeline end to end for one request.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path required"})
		return
	}
	tickets, err := export.Load(req.Path, export.Options{
		MonthsBack: req.MonthsBack,
		CIName:     req.CIName,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, export.ErrFileNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, export.ErrUnsupportedFormat) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	var roles []report.BucketedTicket
	if req.User != "" {
		roles = report.RolesForUser(tickets, req.User, ticket.Role(req.Role))
		tickets = report.Flatten(roles)
	}
	provider := s.provider
	if req.SkipAI {
		provider = nil
	}
	analyzer := analysis.NewAnalyzer(provider, req.MinOccurrences)
	patterns := analyzer.Patterns(r.Context(), tickets)
	gaps := analyzer.Gaps(r.Context(), tickets, nil)
	summary, usedAI := analyzer.Summarize(r.Context(), tickets)
	logger.Info("api: analysis complete", "tickets", len(tickets),
		"patterns", len(patterns.Patterns), "gaps", len(gaps.Gaps), "used_ai", usedAI)
	writeJSON(w, http.StatusOK, analyzeResponse{
		Summary:  report.Summarize(tickets),
		AIText:   summary,
		Patterns: patterns.Patterns,
		Gaps:     gaps.Gaps,
		Timeline: report.Timeline(tickets),
		Roles:    roles,
		UsedAI:   patterns.UsedAI || gaps.UsedAI || usedAI,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		common.Logger().Error("api: encode response failed", "error", err)
	}
}
