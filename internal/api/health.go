package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chuckycastle/mealtogether/backend/internal/service"
)

type HealthHandler struct {
	breaker *service.CircuitBreaker
}

func NewHealthHandler(breaker *service.CircuitBreaker) *HealthHandler {
	return &HealthHandler{breaker: breaker}
}

func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
}

// Health reports liveness plus the normalization circuit state so operators
// can see provider trouble without reading logs.
func (h *HealthHandler) Health(c *gin.Context) {
	state := h.breaker.Status(c.Request.Context())

	circuit := gin.H{
		"is_open":              state.IsOpen,
		"consecutive_failures": state.ConsecutiveFailures,
	}
	if !state.LastFailureAt.IsZero() {
		circuit["last_failure_at"] = state.LastFailureAt.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"circuit": circuit,
	})
}
