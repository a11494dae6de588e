// Package server exposes the research pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/audit"
	"github.com/ize202/slipshark/pkg/budget"
	"github.com/ize202/slipshark/pkg/cache"
	"github.com/ize202/slipshark/pkg/config"
	"github.com/ize202/slipshark/pkg/models"
	"github.com/ize202/slipshark/pkg/research"
	"github.com/ize202/slipshark/pkg/store"
)

// Server is the Slipshark HTTP API.
type Server struct {
	cfg      *config.Config
	chain    *research.Chain
	cache    *cache.Service
	store    store.Store
	enforcer *budget.Enforcer
	auditor  *audit.Logger
	logger   *zap.Logger
	validate *validator.Validate
	handler  http.Handler
}

// New creates a Server wired with all dependencies. enforcer and auditor
// may be nil when those subsystems are disabled.
func New(cfg *config.Config, chain *research.Chain, cacheSvc *cache.Service, s store.Store, e *budget.Enforcer, a *audit.Logger, logger *zap.Logger) *Server {
	srv := &Server{
		cfg:      cfg,
		chain:    chain,
		cache:    cacheSvc,
		store:    s,
		enforcer: e,
		auditor:  a,
		logger:   logger,
		validate: validator.New(),
	}
	srv.handler = srv.routes()
	return srv
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authenticate(s.cfg.APIKeys))
		if s.cfg.RateLimit.Enabled {
			r.Use(newRateLimiter(s.cfg.RateLimit).middleware)
		}
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/extend", s.handleExtend)
		r.Get("/cache/stats", s.handleCacheStats)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the API server with graceful shutdown on context
// cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("slipshark api listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "slipshark",
		"status":  "operational",
		"endpoints": []string{
			"POST /v1/analyze",
			"POST /v1/extend",
			"GET /v1/cache/stats",
			"GET /health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeResearchRequest(w, r)
	if !ok {
		return
	}
	s.runResearch(w, r, req)
}

// handleExtend reruns a prior query with deep research forced.
func (s *Server) handleExtend(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeResearchRequest(w, r)
	if !ok {
		return
	}
	req.Mode = models.ModeDeep
	req.ForceDeep = true
	s.runResearch(w, r, req)
}

func (s *Server) decodeResearchRequest(w http.ResponseWriter, r *http.Request) (*models.ResearchRequest, bool) {
	var req models.ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("validation failed: %v", err))
		return nil, false
	}
	return &req, true
}

func (s *Server) runResearch(w http.ResponseWriter, r *http.Request, req *models.ResearchRequest) {
	apiKey := apiKeyFrom(r.Context())
	mode := req.Mode
	if mode == "" {
		mode = models.ModeAuto
	}

	if s.enforcer != nil {
		if err := s.enforcer.Check(r.Context(), apiKey, mode); err != nil {
			if errors.Is(err, budget.ErrBudgetExceeded) {
				writeError(w, http.StatusTooManyRequests, "research budget exceeded")
				return
			}
			writeError(w, http.StatusInternalServerError, "budget check failed")
			return
		}
	}

	start := time.Now()
	result, err := s.chain.ProcessQuery(r.Context(), req)
	status := http.StatusOK
	if err != nil {
		var parseErr *research.ParseError
		if errors.As(err, &parseErr) {
			status = http.StatusBadGateway
		} else {
			status = http.StatusInternalServerError
		}
	}

	s.recordOutcome(r, req, result, status, time.Since(start))

	if err != nil {
		s.logger.Error("research failed", zap.String("query", req.Query), zap.Error(err))
		writeError(w, status, "research failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// recordOutcome persists history and audit rows. Best-effort: accounting
// failures never affect the response.
func (s *Server) recordOutcome(r *http.Request, req *models.ResearchRequest, result *models.Result, status int, latency time.Duration) {
	apiKey := apiKeyFrom(r.Context())

	rec := models.ResearchRecord{
		APIKey:    apiKey,
		Query:     req.Query,
		Failed:    status != http.StatusOK,
		LatencyMs: latency.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}
	summary := ""
	if result != nil {
		rec.QueryID = result.QueryID
		rec.Mode = result.Mode
		rec.Sport = result.Analysis.Sport
		rec.Confidence = result.ConfidenceScore()
		rec.DataPoints = len(result.DataPoints)
		switch {
		case result.Quick != nil:
			summary = result.Quick.Summary
		case result.Deep != nil:
			summary = result.Deep.Summary
		}
	}
	if s.store != nil {
		if err := s.store.Record(r.Context(), rec); err != nil {
			s.logger.Warn("history record failed", zap.Error(err))
		}
	}

	if s.auditor != nil {
		keyHash, keyPrefix := audit.HashAPIKey(apiKey)
		entry := models.AuditEntry{
			RequestID:    chimiddleware.GetReqID(r.Context()),
			APIKeyHash:   keyHash,
			APIKeyPrefix: keyPrefix,
			Mode:         rec.Mode,
			Query:        req.Query,
			Summary:      summary,
			StatusCode:   status,
			LatencyMs:    latency.Milliseconds(),
			CreatedAt:    time.Now().UTC(),
		}
		go func() {
			if err := s.auditor.Log(context.Background(), entry); err != nil {
				s.logger.Warn("audit log failed", zap.Error(err))
			}
		}()
	}
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"message": message, "code": code},
	})
}
