package server

import (
	"net/http"
	"time"

	ginhandler "user-management-api/internal/adapter/gin/handler"
	ginrouter "user-management-api/internal/adapter/gin/router"

	"go.uber.org/zap"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(handler *ginhandler.UserHandler, opts ginrouter.Options, addr string, l *zap.Logger) *http.Server {
	router := ginrouter.SetupRouter(handler, opts, l)

	l.Info("REST API configured",
		zap.String("address", addr),
		zap.String("cors_origin", opts.CORSOrigin),
	)

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
