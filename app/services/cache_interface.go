package services

import (
	"context"
	"time"

	"github.com/address-extractor/app/models"
)

// CacheStats cache counters
type CacheStats struct {
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

// ICacheService stores extraction results keyed by document fingerprint
type ICacheService interface {
	Get(ctx context.Context, key string) (*models.ExtractionResult, bool, error)

	Set(ctx context.Context, key string, result *models.ExtractionResult) error

	Delete(ctx context.Context, key string) error

	Clear(ctx context.Context) error

	// InvalidateByGazetteerVersion drops every entry built against another gazetteer version
	InvalidateByGazetteerVersion(ctx context.Context, currentVersion string) error

	GetStats(ctx context.Context) (*CacheStats, error)

	Exists(ctx context.Context, key string) (bool, error)

	// GetTTL returns the remaining lifetime of key, 0 when unknown or expired
	GetTTL(ctx context.Context, key string) (time.Duration, error)

	Close() error
}

func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
