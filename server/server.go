// Package server exposes SQL access analysis over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	sqlaccess "github.com/tsfans/sql-access"
	"github.com/tsfans/sql-access/access"
	"github.com/tsfans/sql-access/metrics"
)

const maxBodyBytes = 1 << 20

const formatErrorPrefix = "Error parsing AST JSON: "

type sqlRequest struct {
	SQL string `json:"sql"`
}

type batchRequest struct {
	SQLs    []string `json:"sqls"`
	Workers int      `json:"workers"`
}

type formatRequest struct {
	AST string `json:"ast"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Option configures a Server.
type Option func(*Server)

// WithCollector records request metrics into c.
func WithCollector(c metrics.Collector) Option {
	return func(s *Server) { s.collector = c }
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// Server routes HTTP requests to an Analyzer.
type Server struct {
	analyzer       *sqlaccess.Analyzer
	collector      metrics.Collector
	metricsHandler http.Handler
	mux            *http.ServeMux
}

// New creates a Server around analyzer.
func New(analyzer *sqlaccess.Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer:  analyzer,
		collector: metrics.NewNoOpCollector(),
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /v1/access", s.handleAccess)
	s.mux.HandleFunc("POST /v1/access/batch", s.handleBatch)
	s.mux.HandleFunc("POST /v1/parse", s.handleParse)
	s.mux.HandleFunc("POST /v1/format", s.handleFormat)
	s.mux.HandleFunc("POST /v1/validate", s.handleValidate)
	s.mux.HandleFunc("GET /v1/version", s.handleVersion)
	s.mux.HandleFunc("GET /v1/audit", s.handleAudit)
	s.mux.HandleFunc("GET /v1/audit/stats", s.handleAuditStats)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metricsHandler != nil {
		s.mux.Handle("GET /metrics", s.metricsHandler)
	}
}

// Handler returns the routed handler wrapped with recovery, logging and metrics.
func (s *Server) Handler() http.Handler {
	return recoverMiddleware(loggingMiddleware(metricsMiddleware(s.collector, s.mux)))
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server listening,address=[%v]", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infof("shutting down server,timeout=[%v]", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if !decode(w, r, &req) {
		return
	}
	report, err := s.analyzer.Analyze(r.Context(), req.SQL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}
	reports, err := s.analyzer.AnalyzeAll(r.Context(), req.SQLs, req.Workers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if !decode(w, r, &req) {
		return
	}
	result := sqlaccess.Parse(req.SQL)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !decode(w, r, &req) {
		return
	}
	formatted := sqlaccess.Format(req.AST)
	if strings.HasPrefix(formatted, formatErrorPrefix) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: formatted})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sql": formatted})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if !decode(w, r, &req) {
		return
	}
	message, invalid := sqlaccess.ErrorMessage(req.SQL)
	resp := struct {
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	}{Valid: !invalid, Error: message}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": sqlaccess.Version()})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	store := s.analyzer.Store()
	if store == nil {
		writeError(w, http.StatusNotFound, errors.New("audit store is not configured"))
		return
	}

	table := r.URL.Query().Get("table")
	if table == "" {
		writeError(w, http.StatusBadRequest, errors.New("table is required"))
		return
	}
	var accessType *access.AccessType
	if raw := r.URL.Query().Get("access"); raw != "" {
		parsed, err := access.ParseAccessType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		accessType = &parsed
	}

	records, err := store.FindByTable(r.Context(), table, accessType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	store := s.analyzer.Store()
	if store == nil {
		writeError(w, http.StatusNotFound, errors.New("audit store is not configured"))
		return
	}
	stats, err := store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("write response failed,err=[%v]", err)
	}
}
