package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/idg10/rxrewrite/config"
	"github.com/idg10/rxrewrite/logger"
)

const defaultShutdownTimeout = 5 * time.Second

// Server serves a Handler over HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        config.ServerConfig
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server with the standard middleware stack and h's routes.
func New(cfg config.ServerConfig, h *Handler, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("server")

	router := gin.New()
	router.Use(Recovery(log), RequestID(), BodyLimit(defaultBodyLimit), RequestLogger(log))
	h.Register(router)

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h2c.NewHandler(router, h2s),
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
		},
		router: router,
		cfg:    cfg,
		log:    log,
	}
}

// Handler returns the root handler, for mounting elsewhere or testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start binds the listen address and serves in the background. It returns
// once the port is bound.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("Starting HTTP server", map[string]interface{}{"addr": s.httpServer.Addr})

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", logger.MergeWithError(nil, err))
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{"addr": ln.Addr().String()})
	return nil
}

// Stop shuts the server down gracefully, bounded by the configured
// shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", logger.MergeWithError(nil, err))
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
