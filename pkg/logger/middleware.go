package logger

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GinAccessLog logs one line per request with the request ID attached.
// Paths listed in skipPaths (health checks, metrics scrapes) are not logged.
func GinAccessLog(l *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(l.Named("http"), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  skipPaths,
		Context: func(c *gin.Context) []zapcore.Field {
			if id := GetRequestID(c.Request.Context()); id != "" {
				return []zapcore.Field{zap.String("request_id", id)}
			}
			return nil
		},
	})
}

// GinRecovery turns panics into a logged 500 with a JSON message body
func GinRecovery(l *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(l.Named("http"), true, func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": "An internal error occurred",
		})
	})
}
