package controllers

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/address-extractor/app/models"
	"github.com/address-extractor/app/requests"
	"github.com/address-extractor/app/responses"
	"github.com/address-extractor/app/services"
	"github.com/address-extractor/helpers/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

// ExtractLimits bound request sizes
type ExtractLimits struct {
	BatchLimit   int
	MaxTextBytes int
}

// ExtractController handles extraction requests
type ExtractController struct {
	extractService *services.ExtractService
	queueService   *services.QueueService
	store          *services.ExtractionStore
	limits         ExtractLimits
	logger         *zap.Logger
}

// NewExtractController creates the controller. queueService and store may be
// nil, in which case the queue endpoints answer 503.
func NewExtractController(extractService *services.ExtractService, queueService *services.QueueService, store *services.ExtractionStore, limits ExtractLimits, logger *zap.Logger) *ExtractController {
	return &ExtractController{
		extractService: extractService,
		queueService:   queueService,
		store:          store,
		limits:         limits,
		logger:         logger,
	}
}

// Extract scans one document
func (ec *ExtractController) Extract(c *gin.Context) {
	var req requests.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", "invalid request: "+err.Error()))
		return
	}
	if !ec.checkTextSize(c, req.Text) {
		return
	}

	startTime := time.Now()
	result, cacheHit, err := ec.extractService.Extract(c.Request.Context(), req.Text, req.Options)
	if err != nil {
		ec.logger.Error("Extraction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("EXTRACT_ERROR", "extraction failed: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, responses.ExtractResponse{
		ExtractionResult: *result,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		CacheHit:         cacheHit,
	})
}

// ParseAddress classifies the text as a single address
func (ec *ExtractController) ParseAddress(c *gin.Context) {
	var req requests.ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", "invalid request: "+err.Error()))
		return
	}
	if !ec.checkTextSize(c, req.Address) {
		return
	}

	c.JSON(http.StatusOK, responses.ParseResponse{
		GazetteerVersion: ec.extractService.GazetteerVersion(),
		Result:           ec.extractService.ParseAddress(req.Address),
	})
}

// BatchExtract starts a background job over several documents
func (ec *ExtractController) BatchExtract(c *gin.Context) {
	var req requests.BatchExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", "invalid request: "+err.Error()))
		return
	}
	if len(req.Documents) > ec.limits.BatchLimit {
		c.JSON(http.StatusBadRequest, responses.NewError("TOO_MANY_DOCUMENTS",
			fmt.Sprintf("at most %d documents per job", ec.limits.BatchLimit)))
		return
	}
	for _, doc := range req.Documents {
		if !ec.checkTextSize(c, doc) {
			return
		}
	}

	jobID := utils.GenerateUUID()
	ec.extractService.CreateJob(jobID, len(req.Documents))
	go ec.extractService.ProcessJob(context.Background(), jobID, req.Documents, req.Options)

	c.JSON(http.StatusAccepted, responses.BatchExtractResponse{
		JobID:            jobID,
		EstimatedSeconds: ec.extractService.EstimateBatchProcessingTime(len(req.Documents)),
		TotalDocuments:   len(req.Documents),
		Message:          "job accepted",
	})
}

// GetJobStatus reports job progress
func (ec *ExtractController) GetJobStatus(c *gin.Context) {
	jobID := c.Param("jobID")
	status, err := ec.extractService.GetJobStatus(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, responses.NewError("JOB_NOT_FOUND", err.Error()))
		return
	}

	c.JSON(http.StatusOK, responses.JobStatusResponse{
		JobID:              status.JobID,
		Status:             status.Status,
		Progress:           status.Progress,
		Processed:          status.Processed,
		Total:              status.Total,
		EstimatedRemaining: status.EstimatedRemaining,
		Message:            status.Message,
	})
}

// GetJobResults returns job results as JSON, or NDJSON with ?format=ndjson (&gzip=1)
func (ec *ExtractController) GetJobResults(c *gin.Context) {
	jobID := c.Param("jobID")

	if c.Query("format") == "ndjson" {
		ec.streamNDJSONResults(c, jobID, c.Query("gzip") == "1")
		return
	}

	results, err := ec.extractService.GetJobResults(jobID)
	if err != nil {
		ec.jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.NewSuccess("job results", results))
}

// EnqueueExtraction hands a document to the worker
func (ec *ExtractController) EnqueueExtraction(c *gin.Context) {
	if ec.queueService == nil {
		c.JSON(http.StatusServiceUnavailable, responses.NewError("QUEUE_DISABLED", "the extraction queue is not configured"))
		return
	}
	var req requests.QueueExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.NewError("INVALID_REQUEST", "invalid request: "+err.Error()))
		return
	}
	if !ec.checkTextSize(c, req.Text) {
		return
	}

	jobID, length, err := ec.queueService.Enqueue(c.Request.Context(), req.Text, req.ValidOnly)
	if err != nil {
		ec.logger.Error("Enqueue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("QUEUE_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusAccepted, responses.QueueExtractResponse{JobID: jobID, QueueLength: length})
}

// GetQueuedResult returns what the worker stored for a queued document
func (ec *ExtractController) GetQueuedResult(c *gin.Context) {
	if ec.store == nil {
		c.JSON(http.StatusServiceUnavailable, responses.NewError("STORE_DISABLED", "the result store is not configured"))
		return
	}
	jobID := c.Param("jobID")
	stored, found, err := ec.store.Get(c.Request.Context(), jobID)
	if err != nil {
		ec.logger.Error("Cannot load queued result", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.NewError("STORE_ERROR", err.Error()))
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, responses.NewError("JOB_NOT_FOUND", "no result stored for job "+jobID))
		return
	}
	c.JSON(http.StatusOK, stored)
}

// HealthCheck reports liveness
func (ec *ExtractController) HealthCheck(c *gin.Context) {
	uptime := time.Since(ec.extractService.GetStartTime())

	deps := map[string]string{
		"extractor": "healthy",
		"queue":     "disabled",
		"store":     "disabled",
	}
	if ec.queueService != nil {
		deps["queue"] = "healthy"
		if _, err := ec.queueService.Length(c.Request.Context()); err != nil {
			deps["queue"] = "unhealthy"
		}
	}
	if ec.store != nil {
		deps["store"] = "healthy"
	}

	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:           "healthy",
		Timestamp:        time.Now().Format(time.RFC3339),
		Uptime:           uptime.Round(time.Second).String(),
		Version:          Version,
		GazetteerVersion: ec.extractService.GazetteerVersion(),
		Services:         deps,
	})
}

// Stats reports extraction counters
func (ec *ExtractController) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, responses.NewSuccess("extraction stats", ec.extractService.GetStats()))
}

func (ec *ExtractController) checkTextSize(c *gin.Context, text string) bool {
	if ec.limits.MaxTextBytes > 0 && len(text) > ec.limits.MaxTextBytes {
		c.JSON(http.StatusRequestEntityTooLarge, responses.NewError("TEXT_TOO_LARGE",
			fmt.Sprintf("documents are limited to %d bytes", ec.limits.MaxTextBytes)))
		return false
	}
	return true
}

func (ec *ExtractController) jobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		c.JSON(http.StatusNotFound, responses.NewError("JOB_NOT_FOUND", err.Error()))
	case errors.Is(err, services.ErrJobNotFinished):
		c.JSON(http.StatusConflict, responses.NewError("JOB_NOT_FINISHED", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, responses.NewError("JOB_FAILED", err.Error()))
	}
}

func (ec *ExtractController) streamNDJSONResults(c *gin.Context, jobID string, gzipEnabled bool) {
	resultChannel, err := ec.extractService.GetJobResultsStream(jobID)
	if err != nil {
		ec.jobError(c, err)
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	var writer gin.ResponseWriter = c.Writer
	if gzipEnabled {
		c.Header("Content-Encoding", "gzip")
		gzWriter := gzip.NewWriter(c.Writer)
		defer gzWriter.Close()
		writer = &gzipResponseWriter{ResponseWriter: c.Writer, gzWriter: gzWriter}
	}
	c.Status(http.StatusOK)

	encoder := json.NewEncoder(writer)
	for result := range resultChannel {
		if err := encoder.Encode(result); err != nil {
			ec.logger.Error("NDJSON encode failed", zap.String("job_id", jobID), zap.Error(err))
			drain(resultChannel)
			return
		}
		writer.Flush()
	}
}

func drain(ch <-chan *models.ExtractionResult) {
	for range ch {
	}
}

type gzipResponseWriter struct {
	gin.ResponseWriter
	gzWriter *gzip.Writer
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	return w.gzWriter.Write(data)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.gzWriter.Write([]byte(s))
}

func (w *gzipResponseWriter) Flush() {
	w.gzWriter.Flush()
	w.ResponseWriter.Flush()
}
