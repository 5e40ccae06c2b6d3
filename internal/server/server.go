package server

import (
	"context"
	"hotelscore/internal/configuration"
	"hotelscore/internal/score"
	"net/http"
)

// Server encapsulates the HTTP server of the application, providing controlled startup and shutdown.
// Uses the service router and ensures timeouts for security and stability.
type Server struct {
	// server — embedded HTTP server from net/http package, fully configured and ready to use.
	server *http.Server
}

// ListenAndServe starts the HTTP server and begins listening on the configured address.
// Blocks execution until the server is stopped or an error occurs.
// If server is stopped via Shutdown, method returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server with the provided context.
// Stops listening, terminates accepting new connections, and allows active connections
// to complete within the timeout specified in the context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// NewServer creates and configures a new server instance.
//
// Parameters:
// - config: address, timeouts and CORS origin.
// - engine: scoring engine used by all handlers.
//
// Returns pointer to a ready-to-run server.
func NewServer(config configuration.ServerConfig, engine *score.Engine) *Server {
	router := NewRouter(engine, config.CORSOrigin)
	s := Server{&http.Server{
		Addr:           config.Address,
		Handler:        router.Mux(),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		MaxHeaderBytes: 1024 * 10,
	}}

	return &s
}
