package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"user-management-api/cmd/api/di"
	ginrouter "user-management-api/internal/adapter/gin/router"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server owns the HTTP listener of the API
type Server struct {
	Logger *zap.Logger
	HTTP   *http.Server
}

// New creates the HTTP server from the container's dependencies
func New(c *di.Container) *Server {
	if c.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := ginrouter.Options{
		ServiceName:    c.Config.Logger.ServiceName,
		CORSOrigin:     c.Config.CORS.AllowedOrigin,
		RateLimiter:    c.RateLimiter,
		TrustedProxies: c.Config.App.TrustedProxies,
		Registry:       c.Registry,
		HealthCheck:    c.Ping,
	}

	return &Server{
		Logger: c.Logger,
		HTTP:   SetupGinServer(c.GinHandler, opts, ":"+c.Config.App.HTTPPort, c.Logger),
	}
}

// Start listens and serves until Shutdown is called.
// It returns nil once the server has been shut down.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.HTTP.Addr, err)
	}

	s.Logger.Info("REST API running", zap.String("address", lis.Addr().String()))

	if err := s.HTTP.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within ctx
func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTP.Shutdown(ctx)
}
