package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/senvr/senvr/engine/infra/monitoring"
	"github.com/senvr/senvr/engine/infra/server/appstate"
	"github.com/senvr/senvr/engine/infra/server/middleware/ratelimit"
	"github.com/senvr/senvr/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Config is the HTTP surface configuration.
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration
	MaxBody int64
}

// FullAddress returns host:port.
func (c *Config) FullAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type Server struct {
	config     Config
	state      *appstate.State
	monitoring *monitoring.Service
	limiter    *ratelimit.Manager
	router     *gin.Engine
}

// Option customizes a Server.
type Option func(*Server)

// WithMonitoring records HTTP metrics and exposes the exporter at its configured path.
func WithMonitoring(svc *monitoring.Service) Option {
	return func(s *Server) {
		s.monitoring = svc
	}
}

// WithRateLimiter limits requests per client.
func WithRateLimiter(m *ratelimit.Manager) Option {
	return func(s *Server) {
		s.limiter = m
	}
}

func NewServer(ctx context.Context, config Config, state *appstate.State, opts ...Option) *Server {
	s := &Server{config: config, state: state}
	for _, opt := range opts {
		opt(s)
	}
	s.buildRouter(ctx)
	return s
}

func (s *Server) buildRouter(ctx context.Context) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger.FromContext(ctx)))
	if s.monitoring != nil {
		s.monitoring.Mount(ctx, r)
	}
	if s.limiter != nil {
		r.Use(s.limiter.Middleware())
	}
	r.Use(appstate.StateMiddleware(s.state))
	RegisterRoutes(r, s.config.MaxBody)
	s.router = r
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	addr := s.config.FullAddress()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      s.writeTimeout(),
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Debug("Received shutdown signal, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) writeTimeout() time.Duration {
	if s.config.Timeout > 0 {
		return s.config.Timeout + 15*time.Second
	}
	return 0
}
