package delivery

import (
	"net/http"
	"time"

	"restaurant_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type MetricsHandler struct {
	cache *usecase.MetricsCache
	log   *logrus.Logger
}

func NewMetricsHandler(cache *usecase.MetricsCache, logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		cache: cache,
		log:   logger,
	}
}

func (h *MetricsHandler) RegisterRoutes(router gin.IRouter, staffAuth gin.HandlerFunc) {
	metrics := router.Group("/admin/metrics", staffAuth)
	{
		metrics.GET("/overview", h.Overview)
		metrics.GET("/orders", h.Orders)
		metrics.GET("/revenue", h.Revenue)
		metrics.GET("/dietary", h.Dietary)
		metrics.POST("/refresh", h.Refresh)
	}
}

// snapshotResponse carries a partition value plus its staleness marker.
type snapshotResponse struct {
	LastUpdated string      `json:"lastUpdated"`
	Metrics     interface{} `json:"metrics"`
}

func (h *MetricsHandler) Overview(c *gin.Context) {
	value, lastUpdated := h.cache.Overview()
	SuccessResponse(c, http.StatusOK, "Overview metrics retrieved", snapshotResponse{
		LastUpdated: lastUpdated.Format(time.RFC3339),
		Metrics:     value,
	})
}

func (h *MetricsHandler) Orders(c *gin.Context) {
	value, lastUpdated := h.cache.Orders()
	SuccessResponse(c, http.StatusOK, "Order metrics retrieved", snapshotResponse{
		LastUpdated: lastUpdated.Format(time.RFC3339),
		Metrics:     value,
	})
}

func (h *MetricsHandler) Revenue(c *gin.Context) {
	value, lastUpdated := h.cache.Revenue()
	SuccessResponse(c, http.StatusOK, "Revenue metrics retrieved", snapshotResponse{
		LastUpdated: lastUpdated.Format(time.RFC3339),
		Metrics:     value,
	})
}

func (h *MetricsHandler) Dietary(c *gin.Context) {
	value, lastUpdated := h.cache.Dietary()
	SuccessResponse(c, http.StatusOK, "Dietary metrics retrieved", snapshotResponse{
		LastUpdated: lastUpdated.Format(time.RFC3339),
		Metrics:     value,
	})
}

// Refresh recomputes every partition synchronously before responding, so an
// administrator gets fresh numbers on the very next read.
func (h *MetricsHandler) Refresh(c *gin.Context) {
	h.log.Info("Manual metrics refresh requested")
	h.cache.RefreshAll()
	SuccessResponse(c, http.StatusOK, "Metrics refreshed", nil)
}
