// Package api serves the JSON query/command surface: rubric management,
// on-demand batch analysis, stored results, and the provider webhook intake.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/prompts"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/store"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/summary"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/webhook"
)

// Analyzer runs a scoring pass over recent calls.
type Analyzer interface {
	ProcessRecent(ctx context.Context, rubric string, hoursBack float64) []store.CallAnalysis
}

// Dispatcher accepts normalized webhook events for background handling.
type Dispatcher interface {
	HandleEvent(evt webhook.Event)
}

type Server struct {
	router    *chi.Mux
	port      int
	registry  *prompts.Registry
	store     *store.AnalysisStore
	analyzer  Analyzer
	reactions Dispatcher
	hoursBack float64
	logger    *slog.Logger
}

// NewServer wires all routes. hoursBack is the default analysis window used
// when an analyze request does not specify one.
func NewServer(port int, reg *prompts.Registry, st *store.AnalysisStore, analyzer Analyzer, reactions Dispatcher, hoursBack float64, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	s := &Server{
		router:    router,
		port:      port,
		registry:  reg,
		store:     st,
		analyzer:  analyzer,
		reactions: reactions,
		hoursBack: hoursBack,
		logger:    logger,
	}

	router.Get("/health", s.health)
	router.Route("/api", func(r chi.Router) {
		r.Get("/prompts", s.listPrompts)
		r.Post("/prompts", s.createPrompt)
		r.Post("/prompts/{id}/activate", s.activatePrompt)
		r.Delete("/prompts/{id}", s.deletePrompt)
		r.Post("/analyze-recent", s.analyzeRecent)
		r.Get("/analyses", s.listAnalyses)
		r.Get("/analyses/summary", s.summarizeAnalyses)
		r.Get("/analysis/{callID}", s.getAnalysis)
	})
	router.Post("/webhook/vapi", s.webhookIntake)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	_, active := s.registry.ActiveBody()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"active_prompt":  active,
		"analyzed_calls": s.store.Count(),
		"system_prompts": s.registry.Count(),
	})
}

func (s *Server) listPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

type createPromptRequest struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

func (s *Server) createPrompt(w http.ResponseWriter, r *http.Request) {
	var req createPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Name == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "name and body are required")
		return
	}
	id := s.registry.Add(req.Name, req.Body)
	s.logger.Info("system prompt created", "id", id, "name", req.Name)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) activatePrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.registry.Activate(id); err != nil {
		s.promptError(w, err)
		return
	}
	s.logger.Info("system prompt activated", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{"activated": id})
}

func (s *Server) deletePrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.registry.Delete(id); err != nil {
		s.promptError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// promptError maps registry errors onto status codes.
func (s *Server) promptError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, prompts.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, prompts.ErrActivePrompt):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type analyzeRequest struct {
	HoursBack *float64 `json:"hours_back"`
}

func (s *Server) analyzeRecent(w http.ResponseWriter, r *http.Request) {
	// The body is optional; an empty request uses the configured window.
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	hours := s.hoursBack
	if req.HoursBack != nil {
		hours = *req.HoursBack
	}

	rubric, ok := s.registry.ActiveBody()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active system prompt")
		return
	}

	analyses := s.analyzer.ProcessRecent(r.Context(), rubric, hours)
	writeJSON(w, http.StatusOK, map[string]any{
		"analyzed": len(analyses),
		"analyses": analyses,
	})
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses := s.store.List()
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].AnalyzedAt.After(analyses[j].AnalyzedAt)
	})
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) summarizeAnalyses(w http.ResponseWriter, r *http.Request) {
	report, err := summary.Summarize(s.store.List())
	if err != nil {
		if errors.Is(err, summary.ErrNoAnalyses) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	a, ok := s.store.Get(callID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no analysis for call %s", callID))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// webhookIntake acknowledges immediately; reactions run on a background
// worker and never delay the response.
func (s *Server) webhookIntake(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if evt, ok := webhook.ParseEvent(body); ok {
		s.reactions.HandleEvent(evt)
	} else {
		s.logger.Warn("unparseable webhook payload", "bytes", len(body))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
