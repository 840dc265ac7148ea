package router

import (
	"context"
	"net/http"
	"time"

	"user-management-api/api"
	"user-management-api/internal/adapter/gin/handler"
	"user-management-api/internal/adapter/gin/middleware"
	"user-management-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// LivenessMessage is the body of GET /.
const LivenessMessage = "User Management API"

// Options configures the optional parts of the HTTP surface.
type Options struct {
	ServiceName string
	// CORSOrigin is the single browser origin allowed; empty disables CORS.
	CORSOrigin  string
	RateLimiter *middleware.RateLimiter
	// TrustedProxies may set X-Forwarded-For; empty makes the client IP the remote address.
	TrustedProxies []string
	// Registry backs /metrics and the request metrics middleware; nil disables both.
	Registry *prometheus.Registry
	// HealthCheck reports whether the database is reachable; nil always reports healthy.
	HealthCheck func(ctx context.Context) error
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(userHandler *handler.UserHandler, opts Options, log *zap.Logger) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		log.Error("invalid trusted proxies, trusting none", zap.Strings("trusted_proxies", opts.TrustedProxies), zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinAccessLog(log, "/health", "/metrics"))
	if opts.Registry != nil {
		router.Use(middleware.NewMetrics(opts.Registry).Handler())
	}
	if cors := middleware.CORS(opts.CORSOrigin); cors != nil {
		router.Use(cors)
	}

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, LivenessMessage)
	})

	// Health check endpoint
	router.GET("/health", healthHandler(opts, log))

	if opts.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	swaggerUI := httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))
	router.GET("/swagger/*any", func(c *gin.Context) {
		if c.Param("any") == "/doc.json" {
			c.Data(http.StatusOK, "application/json; charset=utf-8", api.OpenAPI)
			return
		}
		swaggerUI(c.Writer, c.Request)
	})

	users := router.Group("/users")
	users.Use(opts.RateLimiter.Handler())
	{
		users.POST("", userHandler.CreateUser)
		users.GET("", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUser)
		users.PUT("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
	}

	return router
}

func healthHandler(opts Options, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := opts.HealthCheck(ctx); err != nil {
				logger.WithContext(c.Request.Context(), log).Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":   "unhealthy",
					"service":  opts.ServiceName,
					"database": "down",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"service":  opts.ServiceName,
			"database": "up",
		})
	}
}
