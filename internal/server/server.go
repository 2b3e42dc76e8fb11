package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// Server runs the control API until Shutdown.
type Server struct {
	httpServer *http.Server
	ready      chan struct{}
	addr       net.Addr
}

// No WriteTimeout: the /ws stream holds its response open.
const (
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second

	DefaultPort = "8080"
)

// New returns a server that has not started listening yet.
func New() *Server {
	return &Server{ready: make(chan struct{})}
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// normalizeAddr accepts "8080", ":8080" or "host:8080". Empty means DefaultPort.
func normalizeAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		port = DefaultPort
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// Run listens on port and serves handler until Shutdown. A clean shutdown
// returns nil.
func (s *Server) Run(port string, handler http.Handler) error {
	s.httpServer = newHTTPServer(normalizeAddr(port), handler)
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()
	close(s.ready)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr blocks until the server is listening and returns its address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
		return s.addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops accepting and waits for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
