package services

import (
	"context"
	"fmt"
	"time"

	"github.com/address-extractor/app/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HybridCacheService layers a fast cache (Redis) over a persistent one (MongoDB)
type HybridCacheService struct {
	l1     ICacheService
	l2     ICacheService
	logger *zap.Logger
}

// NewHybridCacheService combines two caches; l1 is read first
func NewHybridCacheService(l1, l2 ICacheService, logger *zap.Logger) *HybridCacheService {
	return &HybridCacheService{
		l1:     l1,
		l2:     l2,
		logger: logger,
	}
}

// Get reads L1, then L2, and copies L2 hits back into L1
func (hcs *HybridCacheService) Get(ctx context.Context, key string) (*models.ExtractionResult, bool, error) {
	result, found, err := hcs.l1.Get(ctx, key)
	if err != nil {
		hcs.logger.Warn("L1 cache failed, falling back to L2", zap.Error(err))
	} else if found {
		hcs.logger.Debug("L1 cache hit", zap.String("key", key))
		return result, true, nil
	}

	result, found, err = hcs.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		hcs.logger.Debug("Cache miss on both levels", zap.String("key", key))
		return nil, false, nil
	}

	bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hcs.l1.Set(bgCtx, key, result); err != nil {
		hcs.logger.Warn("Cannot sync L2 hit into L1", zap.Error(err), zap.String("key", key))
	}

	hcs.logger.Debug("L2 cache hit", zap.String("key", key))
	return result, true, nil
}

// Set writes both levels concurrently
func (hcs *HybridCacheService) Set(ctx context.Context, key string, result *models.ExtractionResult) error {
	return hcs.both(ctx, "set", func(ctx context.Context, c ICacheService) error {
		return c.Set(ctx, key, result)
	})
}

// Delete removes key from both levels
func (hcs *HybridCacheService) Delete(ctx context.Context, key string) error {
	return hcs.both(ctx, "delete", func(ctx context.Context, c ICacheService) error {
		return c.Delete(ctx, key)
	})
}

// Clear empties both levels
func (hcs *HybridCacheService) Clear(ctx context.Context) error {
	if err := hcs.both(ctx, "clear", func(ctx context.Context, c ICacheService) error {
		return c.Clear(ctx)
	}); err != nil {
		return err
	}
	hcs.logger.Info("Hybrid cache cleared")
	return nil
}

// InvalidateByGazetteerVersion invalidates both levels
func (hcs *HybridCacheService) InvalidateByGazetteerVersion(ctx context.Context, currentVersion string) error {
	if err := hcs.both(ctx, "invalidate", func(ctx context.Context, c ICacheService) error {
		return c.InvalidateByGazetteerVersion(ctx, currentVersion)
	}); err != nil {
		return err
	}
	hcs.logger.Info("Hybrid cache invalidated", zap.String("gazetteer_version", currentVersion))
	return nil
}

// GetStats sums the counters of both levels; items come from L2
func (hcs *HybridCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	l1Stats, l1Err := hcs.l1.GetStats(ctx)
	l2Stats, l2Err := hcs.l2.GetStats(ctx)

	switch {
	case l1Err != nil && l2Err != nil:
		return nil, fmt.Errorf("both cache levels failed: %v, %v", l1Err, l2Err)
	case l1Err != nil:
		return l2Stats, nil
	case l2Err != nil:
		return l1Stats, nil
	}

	hits := l1Stats.TotalHits + l2Stats.TotalHits
	// An L1 miss that L2 served is not a miss overall.
	misses := l2Stats.TotalMiss
	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: l2Stats.TotalItems,
	}, nil
}

// Exists checks L1 then L2
func (hcs *HybridCacheService) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := hcs.l1.Exists(ctx, key)
	if err != nil {
		hcs.logger.Warn("L1 exists check failed, falling back to L2", zap.Error(err))
	} else if exists {
		return true, nil
	}
	return hcs.l2.Exists(ctx, key)
}

// GetTTL reports the L1 TTL
func (hcs *HybridCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return hcs.l1.GetTTL(ctx, key)
}

// Close closes both levels
func (hcs *HybridCacheService) Close() error {
	return hcs.both(context.Background(), "close", func(_ context.Context, c ICacheService) error {
		return c.Close()
	})
}

func (hcs *HybridCacheService) both(ctx context.Context, op string, fn func(context.Context, ICacheService) error) error {
	var g errgroup.Group
	for _, level := range []struct {
		name  string
		cache ICacheService
	}{{"l1", hcs.l1}, {"l2", hcs.l2}} {
		level := level
		g.Go(func() error {
			if err := fn(ctx, level.cache); err != nil {
				hcs.logger.Warn("Cache operation failed",
					zap.String("op", op),
					zap.String("level", level.name),
					zap.Error(err))
				return fmt.Errorf("%s %s: %w", level.name, op, err)
			}
			return nil
		})
	}
	return g.Wait()
}
