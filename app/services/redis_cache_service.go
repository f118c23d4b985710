package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/address-extractor/app/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisScanCount = 500

// NewRedisClient parses redisURL and pings the server
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cannot reach redis: %w", err)
	}
	return client, nil
}

// RedisCacheService stores extraction results as JSON values under a key prefix
type RedisCacheService struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration

	hits   int64
	misses int64
}

// NewRedisCacheService wraps an already connected client
func NewRedisCacheService(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisCacheService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCacheService{
		client: client,
		logger: logger,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get reads a result from Redis
func (rcs *RedisCacheService) Get(ctx context.Context, key string) (*models.ExtractionResult, bool, error) {
	cacheKey := rcs.prefix + key

	val, err := rcs.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&rcs.misses, 1)
		return nil, false, nil
	}
	if err != nil {
		rcs.logger.Error("Redis get failed", zap.Error(err), zap.String("key", cacheKey))
		return nil, false, err
	}

	var result models.ExtractionResult
	if err := json.Unmarshal(val, &result); err != nil {
		rcs.logger.Error("Cannot decode cached result", zap.Error(err), zap.String("key", cacheKey))
		return nil, false, err
	}

	atomic.AddInt64(&rcs.hits, 1)
	rcs.logger.Debug("Redis cache hit", zap.String("key", key))
	return &result, true, nil
}

// Set writes a result with the service TTL
func (rcs *RedisCacheService) Set(ctx context.Context, key string, result *models.ExtractionResult) error {
	cacheKey := rcs.prefix + key

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}
	if err := rcs.client.Set(ctx, cacheKey, data, rcs.ttl).Err(); err != nil {
		rcs.logger.Error("Redis set failed", zap.Error(err), zap.String("key", cacheKey))
		return err
	}

	rcs.logger.Debug("Stored in Redis cache", zap.String("key", key))
	return nil
}

// Delete removes one key
func (rcs *RedisCacheService) Delete(ctx context.Context, key string) error {
	cacheKey := rcs.prefix + key
	if err := rcs.client.Del(ctx, cacheKey).Err(); err != nil {
		rcs.logger.Error("Redis delete failed", zap.Error(err), zap.String("key", cacheKey))
		return err
	}
	return nil
}

// Clear removes every key under the prefix
func (rcs *RedisCacheService) Clear(ctx context.Context) error {
	deleted := 0
	err := rcs.scanKeys(ctx, func(keys []string) error {
		deleted += len(keys)
		return rcs.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("clear redis cache: %w", err)
	}

	rcs.logger.Info("Redis cache cleared", zap.Int("keys_deleted", deleted))
	return nil
}

// InvalidateByGazetteerVersion decodes each entry and deletes those built
// against another gazetteer version
func (rcs *RedisCacheService) InvalidateByGazetteerVersion(ctx context.Context, currentVersion string) error {
	deleted := 0
	err := rcs.scanKeys(ctx, func(keys []string) error {
		values, err := rcs.client.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		var stale []string
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var result models.ExtractionResult
			if err := json.Unmarshal([]byte(raw), &result); err != nil || result.GazetteerVersion != currentVersion {
				stale = append(stale, keys[i])
			}
		}
		if len(stale) == 0 {
			return nil
		}
		deleted += len(stale)
		return rcs.client.Del(ctx, stale...).Err()
	})
	if err != nil {
		return fmt.Errorf("invalidate redis cache: %w", err)
	}

	rcs.logger.Info("Redis cache invalidated",
		zap.String("gazetteer_version", currentVersion),
		zap.Int("keys_deleted", deleted))
	return nil
}

// GetStats returns hit/miss counters and the number of keys under the prefix
func (rcs *RedisCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	var total int64
	err := rcs.scanKeys(ctx, func(keys []string) error {
		total += int64(len(keys))
		return nil
	})
	if err != nil {
		rcs.logger.Warn("Cannot count redis keys", zap.Error(err))
	}

	hits := atomic.LoadInt64(&rcs.hits)
	misses := atomic.LoadInt64(&rcs.misses)
	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: total,
	}, nil
}

// Exists checks a key
func (rcs *RedisCacheService) Exists(ctx context.Context, key string) (bool, error) {
	n, err := rcs.client.Exists(ctx, rcs.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetTTL returns the Redis TTL of a key
func (rcs *RedisCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := rcs.client.TTL(ctx, rcs.prefix+key).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Close closes the Redis client
func (rcs *RedisCacheService) Close() error {
	return rcs.client.Close()
}

func (rcs *RedisCacheService) scanKeys(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := rcs.client.Scan(ctx, cursor, rcs.prefix+"*", redisScanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
