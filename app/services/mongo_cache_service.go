package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/address-extractor/app/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ExtractionCacheCollection holds persisted extraction results
const ExtractionCacheCollection = "extraction_cache"

// MongoCacheService persistent cache in MongoDB with an in-memory LRU in front
type MongoCacheService struct {
	collection *mongo.Collection
	l1Cache    *lru.Cache[string, *models.ExtractionResult]
	logger     *zap.Logger
	ttl        time.Duration

	totalHits int64
	totalMiss int64
	l1Hits    int64
	l1Miss    int64
	mongoHits int64
	mongoMiss int64
}

// NewMongoCacheService creates the cache and its indexes; ttl > 0 adds a TTL index on created_at
func NewMongoCacheService(db *mongo.Database, l1Size int, ttl time.Duration, logger *zap.Logger) (*MongoCacheService, error) {
	l1Cache, err := lru.New[string, *models.ExtractionResult](l1Size)
	if err != nil {
		return nil, fmt.Errorf("create LRU cache: %w", err)
	}

	collection := db.Collection(ExtractionCacheCollection)

	createdAt := mongo.IndexModel{Keys: bson.D{bson.E{Key: "created_at", Value: 1}}}
	if ttl > 0 {
		createdAt.Options = options.Index().SetExpireAfterSeconds(int32(ttl.Seconds()))
	}
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "document_fingerprint", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{bson.E{Key: "gazetteer_version", Value: 1}},
		},
		createdAt,
		{
			Keys: bson.D{bson.E{Key: "last_accessed", Value: 1}},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		logger.Warn("Cannot create extraction_cache indexes", zap.Error(err))
	}

	return &MongoCacheService{
		collection: collection,
		l1Cache:    l1Cache,
		logger:     logger,
		ttl:        ttl,
	}, nil
}

// Get looks in L1 first, then MongoDB
func (mcs *MongoCacheService) Get(ctx context.Context, key string) (*models.ExtractionResult, bool, error) {
	if result, found := mcs.l1Cache.Get(key); found {
		atomic.AddInt64(&mcs.l1Hits, 1)
		atomic.AddInt64(&mcs.totalHits, 1)
		mcs.logger.Debug("L1 cache hit", zap.String("key", key))
		return result, true, nil
	}
	atomic.AddInt64(&mcs.l1Miss, 1)

	var entry models.ExtractionCache
	err := mcs.collection.FindOne(ctx, bson.M{"document_fingerprint": key}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			atomic.AddInt64(&mcs.mongoMiss, 1)
			atomic.AddInt64(&mcs.totalMiss, 1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query extraction cache: %w", err)
	}

	atomic.AddInt64(&mcs.mongoHits, 1)
	atomic.AddInt64(&mcs.totalHits, 1)

	go mcs.updateAccessStats(context.Background(), entry.ID)

	mcs.l1Cache.Add(key, &entry.Result)
	mcs.logger.Debug("MongoDB cache hit", zap.String("key", key))
	return &entry.Result, true, nil
}

// Set writes to L1 and upserts into MongoDB
func (mcs *MongoCacheService) Set(ctx context.Context, key string, result *models.ExtractionResult) error {
	mcs.l1Cache.Add(key, result)

	entry := models.NewExtractionCache(*result)
	entry.DocumentFingerprint = key

	opts := options.Replace().SetUpsert(true)
	if _, err := mcs.collection.ReplaceOne(ctx, bson.M{"document_fingerprint": key}, entry, opts); err != nil {
		mcs.logger.Error("Cannot store extraction in MongoDB cache",
			zap.Error(err),
			zap.String("fingerprint", key))
		return fmt.Errorf("store extraction cache: %w", err)
	}

	mcs.logger.Debug("Stored in cache",
		zap.String("fingerprint", key),
		zap.Int("addresses", result.Total))
	return nil
}

// Delete removes a key from both levels
func (mcs *MongoCacheService) Delete(ctx context.Context, key string) error {
	mcs.l1Cache.Remove(key)

	if _, err := mcs.collection.DeleteOne(ctx, bson.M{"document_fingerprint": key}); err != nil {
		return fmt.Errorf("delete extraction cache: %w", err)
	}
	return nil
}

// Clear empties both levels and resets the counters
func (mcs *MongoCacheService) Clear(ctx context.Context) error {
	mcs.l1Cache.Purge()

	if _, err := mcs.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear extraction cache: %w", err)
	}

	for _, counter := range []*int64{&mcs.totalHits, &mcs.totalMiss, &mcs.l1Hits, &mcs.l1Miss, &mcs.mongoHits, &mcs.mongoMiss} {
		atomic.StoreInt64(counter, 0)
	}
	return nil
}

// InvalidateByGazetteerVersion deletes documents built against another version
func (mcs *MongoCacheService) InvalidateByGazetteerVersion(ctx context.Context, currentVersion string) error {
	mcs.l1Cache.Purge()

	filter := bson.M{"gazetteer_version": bson.M{"$ne": currentVersion}}
	result, err := mcs.collection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("invalidate extraction cache: %w", err)
	}

	mcs.logger.Info("Extraction cache invalidated",
		zap.String("gazetteer_version", currentVersion),
		zap.Int64("deleted_count", result.DeletedCount))
	return nil
}

// GetStats counts hits and stored documents
func (mcs *MongoCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	mongoCount, err := mcs.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("count extraction cache: %w", err)
	}

	hits := atomic.LoadInt64(&mcs.totalHits)
	misses := atomic.LoadInt64(&mcs.totalMiss)
	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: mongoCount,
	}, nil
}

// Exists checks L1 then MongoDB
func (mcs *MongoCacheService) Exists(ctx context.Context, key string) (bool, error) {
	if mcs.l1Cache.Contains(key) {
		return true, nil
	}

	count, err := mcs.collection.CountDocuments(ctx, bson.M{"document_fingerprint": key})
	if err != nil {
		return false, fmt.Errorf("check extraction cache: %w", err)
	}
	return count > 0, nil
}

// GetTTL derives the remaining lifetime from created_at and the TTL index
func (mcs *MongoCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	if mcs.ttl <= 0 {
		return 0, nil
	}

	var entry models.ExtractionCache
	opts := options.FindOne().SetProjection(bson.M{"created_at": 1})
	err := mcs.collection.FindOne(ctx, bson.M{"document_fingerprint": key}, opts).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	remaining := mcs.ttl - time.Since(entry.CreatedAt)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Close is a no-op; the Mongo client belongs to the caller
func (mcs *MongoCacheService) Close() error {
	return nil
}

func (mcs *MongoCacheService) updateAccessStats(ctx context.Context, id primitive.ObjectID) {
	update := bson.M{
		"$set": bson.M{"last_accessed": time.Now()},
		"$inc": bson.M{"access_count": 1},
	}
	if _, err := mcs.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		mcs.logger.Warn("Cannot update access stats", zap.Error(err))
	}
}

// GetL1Stats reports the per-level counters
func (mcs *MongoCacheService) GetL1Stats() map[string]interface{} {
	return map[string]interface{}{
		"l1_size":    mcs.l1Cache.Len(),
		"l1_hits":    atomic.LoadInt64(&mcs.l1Hits),
		"l1_miss":    atomic.LoadInt64(&mcs.l1Miss),
		"mongo_hits": atomic.LoadInt64(&mcs.mongoHits),
		"mongo_miss": atomic.LoadInt64(&mcs.mongoMiss),
		"total_hits": atomic.LoadInt64(&mcs.totalHits),
		"total_miss": atomic.LoadInt64(&mcs.totalMiss),
	}
}

// WarmUp loads the most accessed documents into L1
func (mcs *MongoCacheService) WarmUp(ctx context.Context, limit int) error {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "access_count", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := mcs.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("warm up extraction cache: %w", err)
	}
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		var entry models.ExtractionCache
		if err := cursor.Decode(&entry); err != nil {
			mcs.logger.Warn("Cannot decode cache entry during warm up", zap.Error(err))
			continue
		}
		result := entry.Result
		mcs.l1Cache.Add(entry.DocumentFingerprint, &result)
		count++
	}

	mcs.logger.Info("Cache warm up finished",
		zap.Int("loaded_items", count),
		zap.Int("l1_size", mcs.l1Cache.Len()))
	return cursor.Err()
}
