package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server with all routes configured.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	appCfg := handler.cfg

	// Protected operations
	r.GET("/search", handler.Search)
	r.GET("/users/:identifier", handler.LookupUser)
	r.GET("/users/:identifier/posts", handler.UserPosts)
	r.GET("/trends", handler.Trends)
	r.POST("/posts", handler.CreatePost)

	// Health and status endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/status", handler.GetStatus)
	r.GET("/stats", handler.GetStats)

	// Admin endpoints (dev mode only, optionally behind an API key)
	if appCfg.DevMode {
		admin := r.Group("/api")
		if appCfg.APIAccessKey != "" {
			admin.Use(authMiddleware(appCfg.APIAccessKey))
		}
		admin.POST("/session/relogin", handler.Relogin)
		slog.Info("Dev-mode admin endpoints enabled", "auth_required", appCfg.APIAccessKey != "")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"search":   "/search?query=<q>&kind=Latest&count=20&start_date=YYYY-MM-DD&end_date=YYYY-MM-DD",
			"timeline": "/users/<id-or-handle>/posts?kind=Posts&count=20",
			"lookup":   "/users/<handle>",
			"trends":   "/trends?kind=trending",
			"post":     "/posts (POST)",
			"health":   "/health",
			"status":   "/status",
			"stats":    "/stats",
		}

		if appCfg.DevMode {
			endpoints["relogin"] = "/api/session/relogin (POST, dev mode)"
		}

		c.JSON(200, gin.H{
			"service":     "birdgate",
			"version":     appCfg.Version,
			"description": "Session-gated proxy for social post search, timelines, trends and post creation",
			"endpoints":   endpoints,
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware guards the admin endpoints with a shared API key.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
