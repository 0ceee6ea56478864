package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/jackpatch"
	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Patcher is the control surface exposed over HTTP.
type Patcher interface {
	Open(ctx context.Context, projectPath string) error
	Save(ctx context.Context) error
	Status(ctx context.Context) (jackpatch.Status, error)
	ConnectAllSaved(ctx context.Context, name string, mode domain.PortMode) (int, error)
}

// OpenRequest is the body of POST /open.
type OpenRequest struct {
	Project string `json:"project"`
}

// ConnectSavedRequest is the body of POST /ports/connect-saved.
type ConnectSavedRequest struct {
	Port string `json:"port"`
	Mode string `json:"mode"`
}

// ConnectSavedResponse reports how many requests were issued.
type ConnectSavedResponse struct {
	Requested int `json:"requested"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server handles the control API.
type Server struct {
	Patcher  Patcher
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithGatherer serves metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger sets the request error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates the HTTP handler for the patcher.
func NewHandler(p Patcher, opts ...Option) http.Handler {
	s := &Server{
		Patcher:  p,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/status", s.GetStatus)
	r.Post("/open", s.Open)
	r.Post("/save", s.Save)
	r.Post("/ports/connect-saved", s.ConnectSaved)
	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStatus handles GET /status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Patcher.Status(r.Context())
	if err != nil {
		s.fail(w, "Status", err)
		return
	}
	s.reply(w, http.StatusOK, st)
}

// Open handles POST /open.
func (s *Server) Open(w http.ResponseWriter, r *http.Request) {
	var body OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Project == "" {
		s.reply(w, http.StatusBadRequest, ErrorResponse{Error: "body must be {\"project\": \"<path>\"}"})
		s.Logger.Warn("Open: Invalid request body", "error", err)
		return
	}
	if err := s.Patcher.Open(r.Context(), body.Project); err != nil {
		s.fail(w, "Open", err)
		return
	}
	s.GetStatus(w, r)
}

// Save handles POST /save.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	if err := s.Patcher.Save(r.Context()); err != nil {
		s.fail(w, "Save", err)
		return
	}
	s.GetStatus(w, r)
}

// ConnectSaved handles POST /ports/connect-saved.
func (s *Server) ConnectSaved(w http.ResponseWriter, r *http.Request) {
	var body ConnectSavedRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Port == "" {
		s.reply(w, http.StatusBadRequest, ErrorResponse{Error: "body must be {\"port\": \"client:port\", \"mode\": \"output|input\"}"})
		s.Logger.Warn("ConnectSaved: Invalid request body", "error", err)
		return
	}
	mode, err := domain.ParsePortMode(body.Mode)
	if err != nil {
		s.reply(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	n, err := s.Patcher.ConnectAllSaved(r.Context(), body.Port, mode)
	if err != nil {
		s.fail(w, "ConnectSaved", err)
		return
	}
	s.reply(w, http.StatusOK, ConnectSavedResponse{Requested: n})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError && !persistence(err) {
		s.Logger.Error(op+" failed", "error", err)
	}
	s.reply(w, code, ErrorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStopped), errors.Is(err, domain.ErrBackendShutdown):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// persistence reports errors the engine has already logged.
func persistence(err error) bool {
	return errors.Is(err, domain.ErrPersistenceRead) || errors.Is(err, domain.ErrPersistenceWrite)
}

func (s *Server) reply(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "error", err)
	}
}

// ListenAndServe serves h on addr until ctx is done, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
