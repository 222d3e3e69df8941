// Package httpapi exposes the registry service as a JSON HTTP API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"treeregistry/internal/core"
)

// Logger is the subset of core.Logger the router writes request logs to.
type Logger = core.Logger

// Handler serves the /api/v1 routes over a core.Service.
type Handler struct {
	svc     *core.Service
	logger  Logger
	metrics http.Handler
}

// Option configures the router.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetricsHandler mounts handler at /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(h *Handler) { h.metrics = handler }
}

// NewRouter builds the mux router for svc.
func NewRouter(svc *core.Service, opts ...Option) *mux.Router {
	h := &Handler{svc: svc, logger: nopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/trees", h.listTrees).Methods(http.MethodGet)
	api.HandleFunc("/trees", h.createTree).Methods(http.MethodPost)
	api.HandleFunc("/trees/{id}", h.getTree).Methods(http.MethodGet)
	api.HandleFunc("/trees/{id}", h.updateTree).Methods(http.MethodPut)
	api.HandleFunc("/trees/{id}", h.removeTree).Methods(http.MethodDelete)
	api.HandleFunc("/trees/{id}/diseased", h.markDiseased).Methods(http.MethodPost)
	api.HandleFunc("/trees/{id}/to-be-cut", h.markToBeCut).Methods(http.MethodPost)
	api.HandleFunc("/locations/{id}", h.getLocation).Methods(http.MethodGet)

	api.HandleFunc("/species", h.listSpecies).Methods(http.MethodGet)
	api.HandleFunc("/species", h.createSpecies).Methods(http.MethodPost)
	api.HandleFunc("/species/{id}/trees", h.treesForSpecies).Methods(http.MethodGet)
	api.HandleFunc("/municipalities", h.listMunicipalities).Methods(http.MethodGet)
	api.HandleFunc("/municipalities", h.createMunicipality).Methods(http.MethodPost)
	api.HandleFunc("/municipalities/{id}/trees", h.treesForMunicipality).Methods(http.MethodGet)
	api.HandleFunc("/statuses", h.listStatuses).Methods(http.MethodGet)
	api.HandleFunc("/statuses", h.createStatus).Methods(http.MethodPost)
	api.HandleFunc("/parks", h.listParks).Methods(http.MethodGet)
	api.HandleFunc("/parks", h.createPark).Methods(http.MethodPost)
	api.HandleFunc("/streets", h.listStreets).Methods(http.MethodGet)
	api.HandleFunc("/streets", h.createStreet).Methods(http.MethodPost)

	api.HandleFunc("/users/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/users/login", h.login).Methods(http.MethodPost)

	api.HandleFunc("/calculations/{kind}", h.calculate).Methods(http.MethodPost)
	api.HandleFunc("/calculations/change/{kind}", h.calculateChange).Methods(http.MethodPost)
	api.HandleFunc("/files", h.loadFile).Methods(http.MethodPost)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
