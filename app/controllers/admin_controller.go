package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/address-extractor/app/requests"
	"github.com/address-extractor/app/responses"
	"github.com/address-extractor/app/services"
	"github.com/address-extractor/internal/reference"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminController handles gazetteer, index and cache administration
type AdminController struct {
	adminService   *services.AdminService
	extractService *services.ExtractService
	ref            *reference.Reference
	logger         *zap.Logger
}

// NewAdminController creates the controller
func NewAdminController(adminService *services.AdminService, extractService *services.ExtractService, ref *reference.Reference, logger *zap.Logger) *AdminController {
	return &AdminController{
		adminService:   adminService,
		extractService: extractService,
		ref:            ref,
		logger:         logger,
	}
}

// SeedGazetteer validates rows and, unless ?dry_run=true, stores them. The
// running process keeps its loaded gazetteer until restart.
func (ac *AdminController) SeedGazetteer(c *gin.Context) {
	var req requests.SeedGazetteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", "invalid request: "+err.Error()))
		return
	}

	if c.Query("dry_run") == "true" {
		validation := ac.adminService.ValidateGazetteerData(req.Data)
		message := "validation passed"
		if !validation.Passed {
			message = "validation failed"
		}
		c.JSON(http.StatusOK, responses.SeedGazetteerResponse{
			ValidationPassed: validation.Passed,
			Warnings:         validation.Warnings,
			DryRun:           true,
			Message:          message,
		})
		return
	}

	result, err := ac.adminService.SeedGazetteer(c.Request.Context(), req.Data, req.RebuildIndexes)
	if err != nil {
		ac.logger.Error("Gazetteer seed failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("SEED_ERROR", err.Error()))
		return
	}

	c.JSON(http.StatusOK, responses.SeedGazetteerResponse{
		ValidationPassed: true,
		GazetteerVersion: result.GazetteerVersion,
		RowsProcessed:    result.RowsProcessed,
		IndexesBuilt:     result.IndexesBuilt,
		ProcessingTimeMs: result.ProcessingTimeMs,
		Message:          "gazetteer seeded; restart to load it",
	})
}

// InvalidateCache drops stale cached results
func (ac *AdminController) InvalidateCache(c *gin.Context) {
	var req requests.InvalidateCacheRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", "invalid request: "+err.Error()))
			return
		}
	}
	version := req.GazetteerVersion
	if version == "" {
		version = ac.extractService.GazetteerVersion()
	}

	startTime := time.Now()
	if err := ac.adminService.InvalidateCache(c.Request.Context(), version, req.All); err != nil {
		ac.logger.Error("Cache invalidation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("INVALIDATE_ERROR", err.Error()))
		return
	}

	ac.logger.Info("Cache invalidated", zap.String("gazetteer_version", version), zap.Bool("all", req.All))
	c.JSON(http.StatusOK, responses.NewSuccess("cache invalidated", gin.H{
		"gazetteer_version":  version,
		"all":                req.All,
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}))
}

// GetStats reports system, cache, storage and extraction counters
func (ac *AdminController) GetStats(c *gin.Context) {
	stats, err := ac.adminService.GetSystemStats(c.Request.Context())
	if err != nil {
		ac.logger.Error("Cannot collect stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("STATS_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccess("system stats", gin.H{
		"system":     stats,
		"extraction": ac.extractService.GetStats(),
	}))
}

// BuildIndexes reseeds the place index from the loaded gazetteer
func (ac *AdminController) BuildIndexes(c *gin.Context) {
	startTime := time.Now()

	steps, err := ac.adminService.RebuildPlaceIndex(c.Request.Context(), ac.ref.Infos())
	if err != nil {
		ac.logger.Error("Place index build failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("BUILD_ERROR", err.Error()))
		return
	}

	c.JSON(http.StatusOK, responses.NewSuccess("indexes built", gin.H{
		"indexes_built":      steps,
		"documents":          ac.ref.Len(),
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}))
}

// ExportData downloads a collection: /export/zipcodes?format=csv&limit=100
func (ac *AdminController) ExportData(c *gin.Context) {
	dataType := c.Param("type")
	format := c.DefaultQuery("format", "json")

	limit := 10000
	if s := c.Query("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 {
			limit = l
		}
	}

	data, err := ac.adminService.ExportData(c.Request.Context(), dataType, format, limit)
	if err != nil {
		ac.logger.Error("Export failed", zap.String("type", dataType), zap.Error(err))
		c.JSON(http.StatusBadRequest, responses.NewError("EXPORT_ERROR", err.Error()))
		return
	}

	filename := fmt.Sprintf("%s_export_%s.%s", dataType, time.Now().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	contentType := "application/json"
	if format == "csv" {
		contentType = "text/csv"
	}
	c.Data(http.StatusOK, contentType, data)
}
