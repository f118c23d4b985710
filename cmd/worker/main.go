package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/address-extractor/app/bootstrap"
	"github.com/address-extractor/app/config"
	"github.com/address-extractor/app/requests"
	"github.com/address-extractor/app/services"
	"go.uber.org/zap"
)

const dequeueTimeout = 5 * time.Second

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

	logger.Info("Starting address extractor worker", zap.String("queue", cfg.Redis.QueueKey))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := bootstrap.ConnectMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.Mongo.Database)

	rdb, err := services.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	ref, err := bootstrap.LoadReference(ctx, cfg.Extractor, db, logger)
	if err != nil {
		logger.Fatal("Failed to load reference data", zap.Error(err))
	}
	cacheService, err := bootstrap.NewCache(cfg.Cache, cfg.Redis.Prefix, db, rdb, logger)
	if err != nil {
		logger.Fatal("Failed to create cache service", zap.Error(err))
	}
	defer cacheService.Close()

	extractService := services.NewExtractService(ref, cacheService, services.ExtractServiceConfig{
		Workers: cfg.Extractor.Workers,
		Hints:   cfg.Extractor.Hints,
	}, logger)
	queue := services.NewQueueService(rdb, cfg.Redis.QueueKey, logger)
	store := services.NewExtractionStore(ctx, db, logger)

	processed := 0
	for ctx.Err() == nil {
		msg, err := queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("Dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		result, _, jobErr := extractService.Extract(ctx, msg.Text, requests.ExtractOptions{
			UseCache:  true,
			ValidOnly: msg.ValidOnly,
		})
		if jobErr != nil {
			logger.Warn("Queued extraction failed", zap.String("job_id", msg.JobID), zap.Error(jobErr))
		}

		// Store with a fresh context so a shutdown does not drop the last result.
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.Save(saveCtx, msg, result, jobErr); err != nil {
			logger.Error("Cannot store result", zap.String("job_id", msg.JobID), zap.Error(err))
		}
		cancel()

		processed++
		logger.Debug("Queued document processed",
			zap.String("job_id", msg.JobID),
			zap.Int("processed", processed))
	}

	logger.Info("Worker exited", zap.Int("processed", processed))
}
