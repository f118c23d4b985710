package routes

import (
	"net/http"

	"github.com/address-extractor/app/controllers"
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes registers the index page
func SetupWebRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "US Address Extractor",
			"version": controllers.Version,
			"endpoints": map[string]string{
				"extract":      "POST /v1/extract",
				"parse":        "POST /v1/parse",
				"batch":        "POST /v1/extract/jobs",
				"job_status":   "GET /v1/extract/jobs/:jobID/status",
				"job_results":  "GET /v1/extract/jobs/:jobID/results",
				"queue":        "POST /v1/extract/queue",
				"queued":       "GET /v1/extract/queue/:jobID",
				"place_search": "GET /v1/places/search",
				"zipcode":      "GET /v1/places/zipcodes/:zipcode",
				"health":       "GET /v1/health",
			},
		})
	})
}
