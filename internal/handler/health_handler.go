package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthHandler serves the probe endpoints.
type HealthHandler struct {
	pool *pgxpool.Pool
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(pool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

type healthResponse struct {
	Status   string           `json:"status"`
	Database string           `json:"database"`
	Pool     map[string]int32 `json:"pool,omitempty"`
}

// Health handles GET /health: database reachability plus a pool
// snapshot for operators watching a long import.
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.pool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, healthResponse{
			Status:   "unhealthy",
			Database: "unreachable",
		})
		return
	}

	stats := h.pool.Stat()
	c.JSON(http.StatusOK, healthResponse{
		Status:   "healthy",
		Database: "connected",
		Pool: map[string]int32{
			"total":  stats.TotalConns(),
			"idle":   stats.IdleConns(),
			"in_use": stats.AcquiredConns(),
		},
	})
}

// Ready handles GET /ready: the engine accepts imports only when the
// database answers.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.pool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Live handles GET /live.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
