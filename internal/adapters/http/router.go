package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voxengine/internal/adapters/signal"
	"github.com/dkeye/voxengine/internal/app/orch"
	"github.com/dkeye/voxengine/internal/config"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// RateLimitMiddleware rejects clients that start sessions too quickly.
func RateLimitMiddleware(rl *TriggerLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.GetString("client_token")) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many session triggers"})
			return
		}
		c.Next()
	}
}

// BodyLimitMiddleware caps request bodies at limit bytes.
func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, gw *signal.Gateway) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Auth.CookieSecret))
	r.Use(sessions.Sessions("VoxSessions", store))
	r.Use(ClientTokenMiddleware())

	h := &handlers{orch: o}
	r.GET("/healthz", h.health)

	api := r.Group("/api", AuthMiddleware(cfg.Auth.Secret), BodyLimitMiddleware(maxBodyBytes))
	limit := RateLimitMiddleware(NewTriggerLimiter(cfg.RateLimit.Triggers, cfg.RateLimit.Interval, nil))

	api.POST("/sessions", limit, h.startSession)
	api.POST("/alerts", limit, h.startAlert)
	api.GET("/sessions", h.listSessions)
	api.GET("/sessions/:id", h.getSession)
	api.DELETE("/sessions/:id", h.terminateSession)
	api.PUT("/sessions/:id/custom-data", h.setCustomData)
	api.POST("/sessions/:id/notifications", h.notify)
	api.GET("/sessions/:id/events", h.events)

	if gw != nil {
		api.GET("/ws/signal", func(c *gin.Context) {
			log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
			gw.Handle(ctx, c)
		})
	}

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
