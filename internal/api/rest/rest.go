package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-alert-indexer/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, auth *middleware.Authenticator) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/stats", handler.GetStats)

		// Ingestion runs (public read access)
		v1.GET("/runs", handler.ListRuns)
		v1.GET("/runs/:run_id", handler.GetRun)

		v1.GET("/alerts/:dia_source_id", handler.GetAlert)

		// Filters: applying is read-only, saving and deleting require authentication
		v1.POST("/filters/apply", handler.ApplyFilter)
		v1.GET("/filters", handler.ListFilters)
		v1.GET("/filters/:name", handler.GetFilter)
		v1.GET("/filters/:name/alerts", handler.ApplySavedFilter)
		v1.PUT("/filters/:name", middleware.Auth(auth), handler.SaveFilter)
		v1.DELETE("/filters/:name", middleware.Auth(auth), handler.DeleteFilter)

		v1.GET("/presets", handler.ListPresets)
		v1.GET("/presets/:name/alerts", handler.ApplyPreset)

		// Processing
		v1.GET("/processors", handler.ListProcessors)
		v1.GET("/results", handler.ListResults)
		v1.POST("/processing/run", middleware.Auth(auth), handler.RunProcessors)
	}
}
