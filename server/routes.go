package server

import (
	"github.com/gin-gonic/gin"

	"restaurant-scraper/utils"
)

// SetupRouter creates and configures the Gin router for the admin API.
func SetupRouter(environment string, h *Handler, logger *utils.Logger) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", h.HealthCheck)

	admin := router.Group("/api/admin")
	{
		admin.POST("/scrape", h.Scrape)
		admin.POST("/rescrape", h.BulkRescrape)
		admin.GET("/export", h.ExportCSV)

		restaurants := admin.Group("/restaurants")
		{
			restaurants.GET("/:id", h.GetRestaurant)
			restaurants.PATCH("/:id", h.UpdateRestaurant)
		}
	}

	return router
}
