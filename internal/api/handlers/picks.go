package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oddsmith/picks-engine/internal/cache"
	"github.com/oddsmith/picks-engine/internal/models"
)

// PicksService defines the picks pipeline operations the API needs.
type PicksService interface {
	GetAllPicks(ctx context.Context, forceRefresh bool) (models.PicksSnapshot, error)
	ForceRefresh(ctx context.Context) error
	CacheStats() cache.Stats
}

// PicksHandler handles pick retrieval and refresh endpoints.
type PicksHandler struct {
	picks PicksService
}

// NewPicksHandler creates a new picks handler.
func NewPicksHandler(picks PicksService) *PicksHandler {
	return &PicksHandler{picks: picks}
}

// GetPicks returns the current categorized picks snapshot. Pass
// ?refresh=true to bypass the snapshot TTL.
func (h *PicksHandler) GetPicks(c *gin.Context) {
	forceRefresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

	snapshot, err := h.picks.GetAllPicks(c.Request.Context(), forceRefresh)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to get picks: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    snapshot,
	})
}

// RefreshPicks invalidates cached market data and reruns the pipeline.
func (h *PicksHandler) RefreshPicks(c *gin.Context) {
	if err := h.picks.ForceRefresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to refresh picks: " + err.Error(),
		})
		return
	}

	snapshot, err := h.picks.GetAllPicks(c.Request.Context(), false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to get picks: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    snapshot,
	})
}

// GetCacheStats returns market-data cache statistics.
func (h *PicksHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.picks.CacheStats(),
	})
}
