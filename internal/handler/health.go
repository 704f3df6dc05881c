package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// BuildInfo is reported by /health and /version.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and build information.
type HealthHandler struct {
	db   Pinger
	info BuildInfo
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, info BuildInfo) *HealthHandler {
	return &HealthHandler{db: db, info: info}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, database, code := "healthy", "ok", http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			_ = c.Error(err)
			status, database, code = "unhealthy", "unreachable", http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":     status,
		"service":    "rental-search",
		"database":   database,
		"version":    h.info.Version,
		"build_time": h.info.BuildTime,
		"git_commit": h.info.GitCommit,
	})
}

// Version handles GET /version
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, h.info)
}
