// Package api exposes the casgen HTTP API: job submission, status
// polling, downloads, and health.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/medforge/casgen/internal/artifacts"
	"github.com/medforge/casgen/internal/auth"
	"github.com/medforge/casgen/internal/config"
	"github.com/medforge/casgen/internal/engine"
	"github.com/medforge/casgen/internal/metrics"
	"github.com/medforge/casgen/internal/store"
	"github.com/medforge/casgen/internal/validation"
)

// maxRequestBody bounds submitted configurations.
const maxRequestBody = 1 << 20

// TemplateStore stores named scenario configuration templates. Backed
// by the Redis cache; absent in deployments without one.
type TemplateStore interface {
	PutTemplate(ctx context.Context, name string, body []byte) error
	GetTemplate(ctx context.Context, name string) ([]byte, error)
	DeleteTemplate(ctx context.Context, name string) error
}

// Server wires the HTTP routes to the engine and store.
type Server struct {
	engine    *engine.Manager
	store     store.Store
	artifacts artifacts.Store
	metrics   *metrics.Metrics
	cfg       *config.Config
	templates TemplateStore
}

// NewServer creates the API server.
func NewServer(eng *engine.Manager, st store.Store, art artifacts.Store, m *metrics.Metrics, cfg *config.Config) *Server {
	return &Server{engine: eng, store: st, artifacts: art, metrics: m, cfg: cfg}
}

// SetTemplateStore enables the template endpoints.
func (s *Server) SetTemplateStore(ts TemplateStore) {
	s.templates = ts
}

// Router builds the full handler chain: mux routes wrapped in metrics,
// CORS and authentication middleware.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/generation/", s.handleCreateJob).Methods(http.MethodPost)
	v1.HandleFunc("/validation/", s.handleValidate).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/", s.handleListJobs).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{job_id}", s.handleGetJob).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{job_id}", s.handleCancelJob).Methods(http.MethodDelete)
	v1.HandleFunc("/downloads/{job_id}", s.handleDownload).Methods(http.MethodGet)
	v1.HandleFunc("/templates/{name}", s.handlePutTemplate).Methods(http.MethodPut)
	v1.HandleFunc("/templates/{name}", s.handleGetTemplate).Methods(http.MethodGet)
	v1.HandleFunc("/templates/{name}", s.handleDeleteTemplate).Methods(http.MethodDelete)
	v1.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = s.metricsMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = auth.NewMiddleware(s.cfg.APIKey).Handler(handler)
	return handler
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			origin = s.cfg.CORSOrigins[0]
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, envelope *validation.ErrorEnvelope) {
	s.writeJSON(w, status, envelope)
}

func notFoundEnvelope(message string) *validation.ErrorEnvelope {
	return &validation.ErrorEnvelope{
		Error: validation.ErrorDetail{
			ErrorType:    validation.ErrorTypeNotFound,
			ErrorCode:    "NOT_FOUND",
			ErrorMessage: message,
			Retryable:    false,
		},
	}
}

func internalEnvelope(message string) *validation.ErrorEnvelope {
	return &validation.ErrorEnvelope{
		Error: validation.ErrorDetail{
			ErrorType:    validation.ErrorTypeInternal,
			ErrorCode:    "INTERNAL",
			ErrorMessage: message,
			Retryable:    true,
		},
	}
}

func conflictEnvelope(message string) *validation.ErrorEnvelope {
	return &validation.ErrorEnvelope{
		Error: validation.ErrorDetail{
			ErrorType:    validation.ErrorTypeConflict,
			ErrorCode:    "INVALID_STATE",
			ErrorMessage: message,
			Retryable:    false,
		},
	}
}
