package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/hakiu/consent-service/internal/config"
	"github.com/hakiu/consent-service/internal/handlers"
)

// Store is the persistence dependency of the router: the consent store plus
// the connectivity check used by /ready.
type Store interface {
	handlers.ConsentStore
	Ping(ctx context.Context) error
}

// RedisPinger is the readiness probe for the rate-limit store.
// *redis.Client satisfies it.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// NewRouter wires public endpoints and the consent API.
// Public: /health, /ready
// API: POST /api/consent
func NewRouter(cfg config.Config, st Store, rdb RedisPinger, limits handlers.Counter, alerts handlers.Alerter) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Anything uncaught becomes a generic 500; no internal detail leaks.
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}))

	// The consent contract requires an explicit 405 for wrong verbs.
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms Postgres and Redis are reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handlers.RegisterConsentRoutes(r, cfg, st, limits, alerts)

	return r
}
