package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/echomed/echobank-backend/internal/database"
	"github.com/echomed/echobank-backend/internal/response"
)

// SystemHandler exposes operational endpoints.
type SystemHandler struct {
	db *database.DB
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db *database.DB) *SystemHandler {
	return &SystemHandler{db: db}
}

// Health godoc
// GET /health
// Reports service liveness and the database pool snapshot. Responds 503
// when the pool is marked unhealthy so load balancers can drain.
func (h *SystemHandler) Health(c *gin.Context) {
	status := h.db.Status()
	code := http.StatusOK
	state := "ok"
	if !status.Healthy {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}

	response.Success(c, code, gin.H{
		"status":   state,
		"database": status,
	})
}
