package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oddsmith/picks-engine/internal/api/handlers"
)

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// SetupRoutes wires the HTTP surface onto the router.
func SetupRoutes(router *gin.Engine, picks handlers.PicksService) {
	router.GET("/health", healthCheck)

	picksHandler := handlers.NewPicksHandler(picks)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/picks", picksHandler.GetPicks)
		v1.POST("/refresh", picksHandler.RefreshPicks)

		cacheGroup := v1.Group("/cache")
		{
			cacheGroup.GET("/stats", picksHandler.GetCacheStats)
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   "1.0.0",
	})
}
