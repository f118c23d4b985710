package responses

import (
	"time"

	"github.com/address-extractor/app/models"
)

// ExtractResponse answers a single document scan
type ExtractResponse struct {
	models.ExtractionResult
	ProcessingTimeMs int64 `json:"processing_time_ms"`
	CacheHit         bool  `json:"cache_hit"`
}

// ParseResponse answers a single window parse
type ParseResponse struct {
	GazetteerVersion string               `json:"gazetteer_version"`
	Result           models.AddressResult `json:"result"`
}

// BatchExtractResponse acknowledges a background job
type BatchExtractResponse struct {
	JobID            string `json:"job_id"`
	EstimatedSeconds int    `json:"estimated_seconds"`
	TotalDocuments   int    `json:"total_documents"`
	Message          string `json:"message"`
}

// JobStatusResponse reports job progress
type JobStatusResponse struct {
	JobID              string  `json:"job_id"`
	Status             string  `json:"status"`
	Progress           float64 `json:"progress"` // 0.0 - 1.0
	Processed          int     `json:"processed"`
	Total              int     `json:"total"`
	EstimatedRemaining int     `json:"estimated_remaining"` // Seconds
	Message            string  `json:"message"`
}

// QueueExtractResponse acknowledges a queued document
type QueueExtractResponse struct {
	JobID       string `json:"job_id"`
	QueueLength int64  `json:"queue_length"`
}

// PlaceSearchResponse lists place index hits
type PlaceSearchResponse struct {
	Query  string         `json:"query"`
	State  string         `json:"state,omitempty"`
	Places []models.Place `json:"places"`
	Total  int            `json:"total"`
}

// SeedGazetteerResponse reports a gazetteer seed or dry run
type SeedGazetteerResponse struct {
	ValidationPassed bool     `json:"validation_passed"`
	Warnings         []string `json:"warnings,omitempty"`
	GazetteerVersion string   `json:"gazetteer_version,omitempty"`
	RowsProcessed    int      `json:"rows_processed,omitempty"`
	IndexesBuilt     int      `json:"indexes_built,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms,omitempty"`
	DryRun           bool     `json:"dry_run"`
	Message          string   `json:"message"`
}

// ErrorResponse is the error envelope of every endpoint
type ErrorResponse struct {
	Error     string      `json:"error"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// SuccessResponse wraps payloads without a dedicated type
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// HealthCheckResponse reports liveness and dependency status
type HealthCheckResponse struct {
	Status           string            `json:"status"`
	Timestamp        string            `json:"timestamp"`
	Uptime           string            `json:"uptime"`
	Version          string            `json:"version"`
	GazetteerVersion string            `json:"gazetteer_version"`
	Services         map[string]string `json:"services"`
}

// NewError builds an ErrorResponse stamped with the current time
func NewError(code, message string) ErrorResponse {
	return ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// NewSuccess builds a SuccessResponse stamped with the current time
func NewSuccess(message string, data interface{}) SuccessResponse {
	return SuccessResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
