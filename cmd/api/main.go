package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/address-extractor/app/bootstrap"
	"github.com/address-extractor/app/config"
	"github.com/address-extractor/app/controllers"
	"github.com/address-extractor/app/services"
	"github.com/address-extractor/internal/search"
	"github.com/address-extractor/routes"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := config.NewLogger(cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting address extractor API", zap.String("env", cfg.App.Env))
	ctx := context.Background()

	var db *mongo.Database
	mongoClient, err := bootstrap.ConnectMongo(ctx, cfg.Mongo, logger)
	switch {
	case err == nil:
		db = mongoClient.Database(cfg.Mongo.Database)
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
			}
		}()
	case bootstrap.NeedsMongo(cfg):
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	default:
		logger.Warn("MongoDB unavailable, admin storage and queued results disabled", zap.Error(err))
	}

	var rdb *redis.Client
	rdb, err = services.NewRedisClient(ctx, cfg.Redis.URL)
	switch {
	case err == nil:
		defer rdb.Close()
	case bootstrap.NeedsRedis(cfg):
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	default:
		logger.Warn("Redis unavailable, extraction queue disabled", zap.Error(err))
	}

	ref, err := bootstrap.LoadReference(ctx, cfg.Extractor, db, logger)
	if err != nil {
		logger.Fatal("Failed to load reference data", zap.Error(err))
	}

	cacheService, err := bootstrap.NewCache(cfg.Cache, cfg.Redis.Prefix, db, rdb, logger)
	if err != nil {
		logger.Fatal("Failed to create cache service", zap.Error(err))
	}
	defer cacheService.Close()

	searcher, err := search.NewPlaceSearcher(search.SearchConfig{
		Host:          cfg.Meilisearch.URL,
		APIKey:        cfg.Meilisearch.MasterKey,
		IndexName:     cfg.Meilisearch.Index,
		Timeout:       cfg.Meilisearch.Timeout,
		MaxCandidates: cfg.Meilisearch.MaxCandidates,
	}, logger)
	if err != nil {
		logger.Warn("Meilisearch unavailable, place search disabled", zap.Error(err))
	}

	extractService := services.NewExtractService(ref, cacheService, services.ExtractServiceConfig{
		Workers: cfg.Extractor.Workers,
		Hints:   cfg.Extractor.Hints,
	}, logger)
	adminService := services.NewAdminService(db, searcher, cacheService, logger)

	// Results computed against an older gazetteer are never served.
	if err := cacheService.InvalidateByGazetteerVersion(ctx, ref.Version()); err != nil {
		logger.Warn("Startup cache invalidation failed", zap.Error(err))
	}

	var queueService *services.QueueService
	if rdb != nil {
		queueService = services.NewQueueService(rdb, cfg.Redis.QueueKey, logger)
	}
	var store *services.ExtractionStore
	if db != nil {
		store = services.NewExtractionStore(ctx, db, logger)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.SetupAllRoutes(router, routes.Controllers{
		Extract: controllers.NewExtractController(extractService, queueService, store, controllers.ExtractLimits{
			BatchLimit:   cfg.Extractor.BatchLimit,
			MaxTextBytes: cfg.Extractor.MaxTextBytes,
		}, logger),
		Places: controllers.NewPlacesController(ref, searcher, cfg.Meilisearch.MaxCandidates, logger),
		Admin:  controllers.NewAdminController(adminService, extractService, ref, logger),
	}, cfg.App.RequestTimeout, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}
	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shut down", zap.Error(err))
	}

	logger.Info("Server exited")
}
