// Package api exposes the sketch engine over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/engine"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/logger"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/storage"
)

type JSON map[string]any

// Option configures the routes.
type Option func(*Handler)

// WithStore enables the snapshot endpoints.
func WithStore(s *storage.Store) Option { return func(h *Handler) { h.store = s } }

// WithLogger sets the request logger.
func WithLogger(l *logger.Logger) Option { return func(h *Handler) { h.log = l } }

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option { return func(h *Handler) { h.gatherer = g } }

func RegisterRoutes(r *mux.Router, eng *engine.Engine, opts ...Option) *Handler {
	h := &Handler{eng: eng}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Nop()
	}
	r.Use(h.logRequests)

	both := []string{http.MethodGet, http.MethodPost}

	// Core endpoints
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/status", h.Status).Methods(both...)

	// Sketch endpoints
	r.HandleFunc("/update", h.serve(h.update)).Methods(both...)
	r.HandleFunc("/query", h.serve(h.query)).Methods(both...)
	r.HandleFunc("/reset", h.serve(h.reset)).Methods(both...)
	r.HandleFunc("/serialize", h.serve(h.serialize)).Methods(both...)
	r.HandleFunc("/merge", h.serve(h.merge)).Methods(both...)

	// Snapshot endpoints
	if h.store != nil {
		r.HandleFunc("/snapshot", h.serve(h.snapshot)).Methods(both...)
		r.HandleFunc("/snapshots", h.ListSnapshots).Methods(http.MethodGet)
		r.HandleFunc("/snapshots/{name}", h.GetSnapshot).Methods(http.MethodGet)
	}

	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return h
}

type Handler struct {
	eng      *engine.Engine
	store    *storage.Store
	log      *logger.Logger
	gatherer prometheus.Gatherer
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		h.log.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
