package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bakehouse/storefront-api/internal/middleware"
	"github.com/bakehouse/storefront-api/internal/service"
)

type StatsHandler struct {
	statsService *service.StatsService
}

func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// Dashboard returns the caller's sales statistics.
func (h *StatsHandler) Dashboard(c *gin.Context) {
	stats, err := h.statsService.ComputeStats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
