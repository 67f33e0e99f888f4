// Package server exposes analysis, suggestion, chart processing and
// dashboard storage over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dashboard"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/KaramelBytes/chartloom-cli/internal/suggest"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// MaxUploadBytes bounds a dataset upload.
const MaxUploadBytes = 32 << 20

// Server routes API requests to the core packages and the store.
type Server struct {
	router *chi.Mux
	store  store.Store
	engine *suggest.Engine
	opts   dataset.Options
	logger *zap.Logger
}

// New wires the routes. A nil logger disables request logging.
func New(s store.Store, opts dataset.Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		router: chi.NewRouter(),
		store:  s,
		engine: suggest.New(),
		opts:   opts,
		logger: logger,
	}
	srv.setupMiddleware()
	srv.setupRoutes()
	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/suggest", s.handleSuggest)
		r.Post("/charts/process", s.handleProcess)

		r.Get("/datasets", s.handleListDatasets)
		r.Post("/datasets", s.handleImportDataset)
		r.Post("/datasets/manual", s.handleManualDataset)
		r.Get("/datasets/{id}", s.handleGetDataset)
		r.Delete("/datasets/{id}", s.handleDeleteDataset)

		r.Get("/dashboards", s.handleListDashboards)
		r.Post("/dashboards", s.handleCreateDashboard)
		r.Get("/dashboards/{id}", s.handleGetDashboard)
		r.Put("/dashboards/{id}", s.handleUpdateDashboard)
		r.Delete("/dashboards/{id}", s.handleDeleteDashboard)
		r.Post("/dashboards/{id}/charts", s.handleAddChart)

		r.Put("/charts/{id}", s.handleUpdateChart)
		r.Delete("/charts/{id}", s.handleDeleteChart)
	})
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	s.logger.Info("listening", zap.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// requestLogger logs each request at debug level.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps err to a status code and writes it as JSON.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var mbe *http.MaxBytesError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, dashboard.ErrChartNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, chart.ErrInvalidFilter), errors.Is(err, chart.ErrInvalidSpec):
		status = http.StatusBadRequest
	case errors.As(err, &mbe):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, dataset.ErrEmptyTable), errors.Is(err, dataset.ErrUnsupported):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
