// Package bootstrap builds the shared dependencies of the binaries in cmd/
// from a loaded configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/address-extractor/app/config"
	"github.com/address-extractor/app/services"
	"github.com/address-extractor/internal/reference"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectMongo connects and pings
func ConnectMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*mongo.Client, error) {
	logger.Info("Connecting to MongoDB", zap.String("database", cfg.Database))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("Connected to MongoDB")
	return client, nil
}

// NeedsMongo reports whether the configuration cannot run without MongoDB
func NeedsMongo(cfg *config.Config) bool {
	return cfg.Cache.Backend == "mongo" || cfg.Cache.Backend == "hybrid" || cfg.Extractor.GazetteerSource == "mongo"
}

// NeedsRedis reports whether the configured cache cannot run without Redis
func NeedsRedis(cfg *config.Config) bool {
	return cfg.Cache.Backend == "redis" || cfg.Cache.Backend == "hybrid"
}

// LoadReference loads the gazetteer from the configured source and the embedded vocabulary
func LoadReference(ctx context.Context, cfg config.ExtractorConfig, db *mongo.Database, logger *zap.Logger) (*reference.Reference, error) {
	var (
		g   *reference.Gazetteer
		err error
	)
	switch cfg.GazetteerSource {
	case "file":
		g, err = reference.LoadGazetteerFile(cfg.GazetteerPath)
	case "mongo":
		if db == nil {
			return nil, errors.New("gazetteer source mongo needs a database")
		}
		g, err = services.NewAdminService(db, nil, nil, logger).LoadGazetteer(ctx)
	default:
		g, err = reference.DefaultGazetteer()
	}
	if err != nil {
		return nil, fmt.Errorf("load gazetteer (%s): %w", cfg.GazetteerSource, err)
	}

	v, err := reference.DefaultVocabulary()
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	logger.Info("Reference data loaded",
		zap.String("source", cfg.GazetteerSource),
		zap.Int("zipcodes", g.Len()),
		zap.String("gazetteer_version", g.Version()))
	return reference.New(g, v), nil
}

// NewCache builds the configured cache backend. db and rdb may be nil when the
// backend does not use them.
func NewCache(cfg config.CacheConfig, redisPrefix string, db *mongo.Database, rdb *redis.Client, logger *zap.Logger) (services.ICacheService, error) {
	switch cfg.Backend {
	case "memory":
		cache := services.NewCacheService(cfg.TTL)
		cache.StartCleanupWorker(10 * time.Minute)
		return cache, nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis cache needs a redis client")
		}
		return services.NewRedisCacheService(rdb, redisPrefix, cfg.TTL, logger), nil
	case "mongo":
		if db == nil {
			return nil, errors.New("mongo cache needs a database")
		}
		return services.NewMongoCacheService(db, cfg.L1Size, cfg.TTL, logger)
	case "hybrid":
		if rdb == nil || db == nil {
			return nil, errors.New("hybrid cache needs redis and mongo")
		}
		l2, err := services.NewMongoCacheService(db, cfg.L1Size, cfg.TTL, logger)
		if err != nil {
			return nil, err
		}
		l1 := services.NewRedisCacheService(rdb, redisPrefix, cfg.TTL, logger)
		return services.NewHybridCacheService(l1, l2, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
