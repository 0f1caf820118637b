package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cropsage/cropsage/internal/advisor"
	"github.com/cropsage/cropsage/internal/log"
	"github.com/cropsage/cropsage/internal/session"
)

// TurnRunner advances one conversation turn. Satisfied by *advisor.Engine.
type TurnRunner interface {
	RunTurn(ctx context.Context, s *advisor.State, userText string) error
}

// ServerConfig contains the server's dependencies.
type ServerConfig struct {
	Engine TurnRunner
	Store  session.Store
	Locker *session.Locker
	Logger log.Logger
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Locker == nil {
		cfg.Locker = session.NewLocker()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	th := &turnHandler{
		engine: cfg.Engine,
		store:  cfg.Store,
		locker: cfg.Locker,
		logger: cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/turn", th.turn)
	mux.HandleFunc("GET /api/sessions", th.listSessions)
	mux.HandleFunc("DELETE /api/sessions/{id}", th.deleteSession)

	var handler http.Handler = mux
	handler = loggingMiddleware(cfg.Logger)(handler)
	handler = recoveryMiddleware(cfg.Logger)(handler)

	// Health probes skip the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", th.health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// NewHTTPServer wraps the handler in an http.Server with timeouts suited to
// turn latency: model and tool calls can take tens of seconds.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
