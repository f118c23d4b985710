package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/address-extractor/app/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ExtractionsCollection holds results of queued jobs
const ExtractionsCollection = "extractions"

// ExtractionStore persists queued job results in MongoDB
type ExtractionStore struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewExtractionStore ensures the job_id index exists
func NewExtractionStore(ctx context.Context, db *mongo.Database, logger *zap.Logger) *ExtractionStore {
	collection := db.Collection(ExtractionsCollection)
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{bson.E{Key: "job_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		logger.Warn("Cannot create extractions index", zap.Error(err))
	}
	return &ExtractionStore{collection: collection, logger: logger}
}

// Save upserts the outcome of one queued job
func (es *ExtractionStore) Save(ctx context.Context, msg *models.QueueMessage, result *models.ExtractionResult, jobErr error) error {
	doc := models.StoredExtraction{
		JobID:       msg.JobID,
		Status:      models.JobStatusDone,
		EnqueuedAt:  msg.EnqueuedAt,
		CompletedAt: time.Now().UTC(),
	}
	if result != nil {
		doc.Result = *result
	}
	if jobErr != nil {
		doc.Status = models.JobStatusFailed
		doc.Error = jobErr.Error()
	}

	_, err := es.collection.ReplaceOne(ctx,
		bson.M{"job_id": msg.JobID},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save extraction %s: %w", msg.JobID, err)
	}
	return nil
}

// Get loads a stored job; the boolean is false when the worker has not finished it
func (es *ExtractionStore) Get(ctx context.Context, jobID string) (*models.StoredExtraction, bool, error) {
	var doc models.StoredExtraction
	err := es.collection.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load extraction %s: %w", jobID, err)
	}
	return &doc, true, nil
}

// Count returns the number of stored jobs
func (es *ExtractionStore) Count(ctx context.Context) (int64, error) {
	return es.collection.CountDocuments(ctx, bson.M{})
}
