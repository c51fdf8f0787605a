package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultReadHeaderTimeout bounds slow clients. There is no write timeout:
// a sync run may take as long as the mailbox needs.
const DefaultReadHeaderTimeout = 10 * time.Second

// Server serves the trigger router.
type Server struct {
	httpServer *http.Server
	health     *HealthChecker
	addr       string
}

// New creates a server for handler on addr.
func New(addr string, handler http.Handler, health *HealthChecker) *Server {
	return &Server{
		addr:   addr,
		health: health,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
		},
	}
}

// Start listens on the configured address and serves until Shutdown.
// ready, if non-nil, is closed once the listener is bound.
func (s *Server) Start(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.addr = ln.Addr().String()

	slog.Info("starting trigger server", "addr", s.addr)
	if ready != nil {
		close(ready)
	}

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server as draining and waits for in-flight runs.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.SetShuttingDown()
	}
	slog.Info("shutting down trigger server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server address. After Start signals ready it is the bound address.
func (s *Server) Addr() string {
	return s.addr
}
