// Package server is the HTTP surface: router construction, middleware,
// and the intervention/task/ops handlers.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/quillfire/impetus/internal/telemetry"
)

// Server owns the router and listening port.
type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
}

// New builds the router with the standard middleware chain. Handlers
// are mounted by the caller via Router. requestTimeout bounds total
// request handling and must exceed the backend call timeout so the
// canonical error, not a blunt deadline, reaches the client.
func New(port int, requestTimeout time.Duration, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(requestTimeout))
	r.Use(middleware.Recoverer)

	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, telemetry.ServiceName)
	})

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
	}
}

// HTTPServer returns an http.Server bound to the configured port, for
// callers that manage graceful shutdown themselves.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}
}

// Start serves until the listener fails. Prefer HTTPServer in main so
// shutdown can drain in-flight requests.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.Port), s.Router)
}
