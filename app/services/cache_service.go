package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/address-extractor/app/models"
)

// CacheService in-memory TTL cache
type CacheService struct {
	cache      map[string]*models.ExtractionResult
	timestamps map[string]time.Time
	mu         sync.RWMutex
	ttl        time.Duration
	hits       int64
	misses     int64
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewCacheService creates an in-memory cache
func NewCacheService(ttl time.Duration) *CacheService {
	return &CacheService{
		cache:      make(map[string]*models.ExtractionResult),
		timestamps: make(map[string]time.Time),
		ttl:        ttl,
		stop:       make(chan struct{}),
	}
}

// Get returns the cached result; expired entries count as misses
func (cs *CacheService) Get(ctx context.Context, key string) (*models.ExtractionResult, bool, error) {
	cs.mu.RLock()
	result, exists := cs.cache[key]
	expired := exists && cs.isExpired(key)
	cs.mu.RUnlock()

	if !exists || expired {
		if expired {
			cs.deleteExpired(key)
		}
		atomic.AddInt64(&cs.misses, 1)
		return nil, false, nil
	}
	atomic.AddInt64(&cs.hits, 1)
	return result, true, nil
}

// Set stores a result
func (cs *CacheService) Set(ctx context.Context, key string, result *models.ExtractionResult) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.timestamps[key] = time.Now()
	cs.cache[key] = result
	return nil
}

// Delete removes one key
func (cs *CacheService) Delete(ctx context.Context, key string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
	delete(cs.timestamps, key)
	return nil
}

// Clear removes everything
func (cs *CacheService) Clear(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache = make(map[string]*models.ExtractionResult)
	cs.timestamps = make(map[string]time.Time)
	return nil
}

// InvalidateByGazetteerVersion drops results built against another gazetteer
func (cs *CacheService) InvalidateByGazetteerVersion(ctx context.Context, currentVersion string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key, result := range cs.cache {
		if result.GazetteerVersion != currentVersion {
			delete(cs.cache, key)
			delete(cs.timestamps, key)
		}
	}
	return nil
}

// Size returns the number of stored entries, expired ones included
func (cs *CacheService) Size() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return len(cs.cache)
}

// GetStats returns hit/miss counters
func (cs *CacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	hits := atomic.LoadInt64(&cs.hits)
	misses := atomic.LoadInt64(&cs.misses)
	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: int64(cs.Size()),
	}, nil
}

// CleanupExpired removes expired entries
func (cs *CacheService) CleanupExpired() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if cs.isExpired(key) {
			delete(cs.cache, key)
			delete(cs.timestamps, key)
		}
	}
}

func (cs *CacheService) isExpired(key string) bool {
	timestamp, exists := cs.timestamps[key]
	if !exists {
		return true
	}
	return time.Since(timestamp) > cs.ttl
}

func (cs *CacheService) deleteExpired(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.isExpired(key) {
		delete(cs.cache, key)
		delete(cs.timestamps, key)
	}
}

// Exists reports whether a live entry is stored
func (cs *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	_, exists := cs.cache[key]
	return exists && !cs.isExpired(key), nil
}

// GetTTL returns the remaining lifetime of key
func (cs *CacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	timestamp, exists := cs.timestamps[key]
	if !exists {
		return 0, nil
	}
	remaining := cs.ttl - time.Since(timestamp)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// StartCleanupWorker periodically removes expired entries until Close
func (cs *CacheService) StartCleanupWorker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cs.CleanupExpired()
			case <-cs.stop:
				return
			}
		}
	}()
}

// Close stops the cleanup worker
func (cs *CacheService) Close() error {
	cs.stopOnce.Do(func() { close(cs.stop) })
	return nil
}
