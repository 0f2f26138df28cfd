// Health and index handlers.
//
//   - GET /         (service banner)
//   - GET /health   (liveness plus database pool readiness)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse reports service liveness and the connection pool state.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	PoolIdle  int    `json:"pool_idle"`
	PoolInUse int    `json:"pool_in_use"`
}

// Index godoc
// @ID          index
// @Summary     Service banner
// @Tags        Health
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      / [get]
func (h *Handlers) Index(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"service": "go-reminder-backend",
		"status":  "running",
	})
}

// Health godoc
// @ID          health
// @Summary     Health check
// @Description Pings the database through the connection pool and reports pool gauges.
// @Tags        Health
// @Produce     json
//
// @Success     200  {object}  handlers.HealthResponse
// @Failure     503  {object}  handlers.HealthResponse  "Database unreachable"
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	stats := h.uow.Stats()
	resp := HealthResponse{
		Status:    "ok",
		Database:  "ok",
		PoolIdle:  stats.Idle,
		PoolInUse: stats.InUse,
	}
	if err := h.uow.Ping(c.Request.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	ok(c, http.StatusOK, resp)
}
