package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"birdgate/app/cfg"
	"birdgate/app/database"
	"birdgate/app/provider"
	"birdgate/app/scraper"
	"birdgate/app/session"
)

func NewHandler(service *scraper.Service, store *session.Store, bootstrapper *session.Bootstrapper, stats database.StatsRepository, appCfg *cfg.Cfg) *Handler {
	return &Handler{
		service:      service,
		store:        store,
		bootstrapper: bootstrapper,
		stats:        stats,
		cfg:          appCfg,
	}
}

func (h *Handler) Search(c *gin.Context) {
	count, ok := parseCount(c)
	if !ok {
		return
	}

	req := scraper.SearchRequest{
		Query:     c.Query("query"),
		Kind:      provider.SearchKind(c.Query("kind")),
		Count:     count,
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}

	result, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":        result.Posts,
		"count":        len(result.Posts),
		"filtered_out": result.FilteredOut,
	})
}

func (h *Handler) UserPosts(c *gin.Context) {
	count, ok := parseCount(c)
	if !ok {
		return
	}

	identifier := c.Param("identifier")
	kind := provider.TimelineKind(c.Query("kind"))

	posts, err := h.service.UserTimeline(c.Request.Context(), identifier, kind, count)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"count": len(posts),
	})
}

func (h *Handler) LookupUser(c *gin.Context) {
	identity, err := h.service.LookupUser(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     identity.ID,
		"name":   identity.Name,
		"handle": identity.ScreenName,
	})
}

func (h *Handler) Trends(c *gin.Context) {
	trends, err := h.service.Trends(c.Request.Context(), c.Query("kind"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trends": trends,
		"count":  len(trends),
	})
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": "Body must be JSON with a non-empty \"text\" field",
		})
		return
	}

	created, err := h.service.CreatePost(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, created)
}

// Relogin triggers a manual credential bootstrap. Credentials may be
// supplied in the body; fields left empty fall back to the configured
// account.
func (h *Handler) Relogin(c *gin.Context) {
	var req reloginRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"message": err.Error(),
			})
			return
		}
	}

	username := req.Username
	if username == "" {
		username = h.cfg.Username
	}
	email := req.Email
	if email == "" {
		email = h.cfg.Email
	}
	password := req.Password
	if password == "" {
		password = h.cfg.Password
	}

	established, err := h.bootstrapper.Rebootstrap(c.Request.Context(), username, email, password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAlreadyActive):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Session already active",
				"message": "A valid session exists; re-login is not needed",
			})
		case errors.Is(err, session.ErrBootstrapInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Bootstrap in progress",
				"message": "Another bootstrap attempt is running; try again shortly",
			})
		default:
			var configErr *session.ConfigurationError
			if errors.As(err, &configErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "Configuration error",
					"message": configErr.Error(),
				})
				return
			}
			slog.Error("Manual re-login failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Re-login failed",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logged_in": true,
		"handle":    established.Identity.ScreenName,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	_, active := h.store.Get()

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"session_active": active,
		"version":        h.cfg.Version,
	})
}

func (h *Handler) GetStatus(c *gin.Context) {
	current, active := h.store.Get()

	status := gin.H{"logged_in": active}
	if active {
		status["handle"] = current.Identity.ScreenName
		status["user_id"] = current.Identity.ID
		status["mode"] = string(current.Mode)
		status["established_at"] = current.EstablishedAt
	}

	if h.cfg.DevMode {
		if failure, ok := h.store.LastFailure(); ok {
			status["last_failure"] = gin.H{
				"mode":      string(failure.Mode),
				"cause":     failure.Cause,
				"message":   failure.Message,
				"timestamp": failure.Timestamp,
			}
		}
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) GetStats(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Archive disabled",
			"message": "No archive database is configured",
		})
		return
	}

	stats, err := h.stats.GetStats()
	if err != nil {
		slog.Error("Failed to load archive stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load stats",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":              stats.Posts,
		"posts_with_media":   stats.PostsWithMedia,
		"bootstrap_attempts": stats.BootstrapAttempts,
		"bootstrap_failures": stats.BootstrapFailures,
	})
}

// parseCount reads the count query parameter. Absence means zero, letting
// the service apply its default; a non-integer value is rejected here.
func parseCount(c *gin.Context) (int, bool) {
	raw := c.Query("count")
	if raw == "" {
		return 0, true
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid count",
			"message": "count must be an integer",
		})
		return 0, false
	}

	return count, true
}

// writeError maps service errors onto HTTP responses. Session absence gets
// a 503 carrying the recovery hint; upstream failures default to 502.
func writeError(c *gin.Context, err error) {
	var validationErr *scraper.ValidationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": validationErr.Message,
		})
	case errors.Is(err, scraper.ErrIdentifierUnresolved), errors.Is(err, provider.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not found",
			"message": err.Error(),
		})
	case errors.Is(err, provider.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "Rate limited",
			"message": err.Error(),
		})
	default:
		var unavailableErr *session.UnavailableError
		if errors.As(err, &unavailableErr) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Session unavailable",
				"message": unavailableErr.Error(),
				"hint":    unavailableErr.Hint,
			})
			return
		}

		slog.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Upstream request failed",
			"message": err.Error(),
		})
	}
}
