package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1.
// Все маршруты, кроме health-check, защищены API-ключом, если ключи заданы.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	protected := api.Group("")
	if len(h.cfg.APIKeys) > 0 {
		protected.Use(APIKeyAuthMiddleware(h.cfg, h.logger))
	}

	// Маршруты для работы с жалобами
	reports := protected.Group("/reports")
	{
		reports.POST("", h.createReport)
		reports.GET("", h.listReports)
		reports.GET("/:id", h.getReport)
		reports.POST("/:id/upvote", h.upvoteReport)
		reports.POST("/:id/verify", h.verifyReport)
		reports.POST("/:id/escalation", h.escalationLetter)
	}

	// Аналитика: локальная тепловая карта срочности и проксируемые сводки
	analytics := protected.Group("/analytics")
	{
		analytics.GET("/urgency-heatmap", h.urgencyHeatmap)
		analytics.GET("/summary", h.analyticsSummary)
		analytics.GET("/alerts", h.analyticsAlerts)
		analytics.GET("/heatmap", h.analyticsHeatmap)
	}

	// Проксирование распознавания изображений
	protected.POST("/detect", h.detect)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
