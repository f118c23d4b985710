package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExtractionCache caches the extraction of one document
type ExtractionCache struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DocumentFingerprint string             `bson:"document_fingerprint" json:"document_fingerprint"` // sha256 of the raw text
	Result              ExtractionResult   `bson:"result" json:"result"`
	GazetteerVersion    string             `bson:"gazetteer_version" json:"gazetteer_version"`
	CreatedAt           time.Time          `bson:"created_at" json:"created_at"`
	LastAccessed        time.Time          `bson:"last_accessed" json:"last_accessed"`
	AccessCount         int                `bson:"access_count" json:"access_count"`
}

// NewExtractionCache wraps a result for storage
func NewExtractionCache(result ExtractionResult) *ExtractionCache {
	now := time.Now()
	return &ExtractionCache{
		DocumentFingerprint: result.DocumentFingerprint,
		Result:              result,
		GazetteerVersion:    result.GazetteerVersion,
		CreatedAt:           now,
		LastAccessed:        now,
		AccessCount:         1,
	}
}

// UpdateAccess records a cache hit
func (ec *ExtractionCache) UpdateAccess() {
	ec.LastAccessed = time.Now()
	ec.AccessCount++
}

// IsExpired checks the entry age against ttlHours
func (ec *ExtractionCache) IsExpired(ttlHours int) bool {
	return time.Since(ec.CreatedAt) > time.Duration(ttlHours)*time.Hour
}

// IsValidGazetteerVersion checks the entry was built against the current gazetteer
func (ec *ExtractionCache) IsValidGazetteerVersion(currentVersion string) bool {
	return ec.GazetteerVersion == currentVersion
}
