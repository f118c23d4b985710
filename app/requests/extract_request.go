package requests

import "github.com/address-extractor/app/models"

// ExtractRequest scans one document
type ExtractRequest struct {
	Text    string         `json:"text" binding:"required"`
	Options ExtractOptions `json:"options,omitempty"`
}

// ExtractOptions tune a scan; they never change how a window is classified
type ExtractOptions struct {
	UseCache  bool `json:"use_cache,omitempty"`  // Read and write the result cache
	ValidOnly bool `json:"valid_only,omitempty"` // Drop invalid windows from the response
}

// ParseRequest classifies text as a single window starting at its first token
type ParseRequest struct {
	Address string `json:"address" binding:"required"`
}

// BatchExtractRequest scans several documents in a background job
type BatchExtractRequest struct {
	Documents []string       `json:"documents" binding:"required,min=1"`
	Options   ExtractOptions `json:"options,omitempty"`
}

// QueueExtractRequest hands a document to the worker through Redis
type QueueExtractRequest struct {
	Text      string `json:"text" binding:"required"`
	ValidOnly bool   `json:"valid_only,omitempty"`
}

// SeedGazetteerRequest replaces the gazetteer rows stored in Mongo
type SeedGazetteerRequest struct {
	Data           []models.ZipcodeDoc `json:"data" binding:"required,min=1"`
	RebuildIndexes bool                `json:"rebuild_indexes,omitempty"` // Also reseed the place index
}

// InvalidateCacheRequest drops cached results; an empty version means the running gazetteer
type InvalidateCacheRequest struct {
	GazetteerVersion string `json:"gazetteer_version,omitempty"`
	All              bool   `json:"all,omitempty"`
}
