package routes

import (
	"github.com/address-extractor/app/controllers"
	"github.com/gin-gonic/gin"
)

// Controllers groups every handler the router needs
type Controllers struct {
	Extract *controllers.ExtractController
	Places  *controllers.PlacesController
	Admin   *controllers.AdminController
}

// SetupAPIRoutes registers the /v1 API
func SetupAPIRoutes(router *gin.Engine, ctrl Controllers) {
	v1 := router.Group("/v1")
	{
		v1.POST("/parse", ctrl.Extract.ParseAddress)

		extract := v1.Group("/extract")
		{
			extract.POST("", ctrl.Extract.Extract)
			extract.POST("/jobs", ctrl.Extract.BatchExtract)
			extract.GET("/jobs/:jobID/status", ctrl.Extract.GetJobStatus)
			extract.GET("/jobs/:jobID/results", ctrl.Extract.GetJobResults)
			extract.POST("/queue", ctrl.Extract.EnqueueExtraction)
			extract.GET("/queue/:jobID", ctrl.Extract.GetQueuedResult)
			extract.GET("/stats", ctrl.Extract.Stats)
		}

		places := v1.Group("/places")
		{
			places.GET("/search", ctrl.Places.Search)
			places.GET("/zipcodes/:zipcode", ctrl.Places.GetZipcode)
		}

		admin := v1.Group("/admin")
		{
			admin.POST("/gazetteer/seed", ctrl.Admin.SeedGazetteer)
			admin.POST("/cache/invalidate", ctrl.Admin.InvalidateCache)
			admin.GET("/stats", ctrl.Admin.GetStats)
			admin.POST("/indexes/build", ctrl.Admin.BuildIndexes)
			admin.GET("/export/:type", ctrl.Admin.ExportData)
		}

		v1.GET("/health", ctrl.Extract.HealthCheck)
	}
}

// SetupHealthRoutes registers probes outside the versioned API
func SetupHealthRoutes(router *gin.Engine, extractController *controllers.ExtractController) {
	router.GET("/health", extractController.HealthCheck)
	router.GET("/ready", extractController.HealthCheck)
	router.GET("/live", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "alive"})
	})
}
