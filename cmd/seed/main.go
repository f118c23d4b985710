package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/address-extractor/app/bootstrap"
	"github.com/address-extractor/app/config"
	"github.com/address-extractor/app/models"
	"github.com/address-extractor/app/requests"
	"github.com/address-extractor/app/services"
	"github.com/address-extractor/internal/reference"
	"github.com/address-extractor/internal/search"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	csvPath := flag.String("csv", "", "gazetteer CSV; empty uses the embedded gazetteer")
	dryRun := flag.Bool("dry-run", false, "validate rows without writing")
	skipIndex := flag.Bool("skip-index", false, "do not rebuild the Meilisearch place index")
	requestOut := flag.String("request-out", "", "write a /v1/admin/gazetteer/seed request body to this file and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.App.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	g, err := loadGazetteer(*csvPath)
	if err != nil {
		logger.Fatal("Cannot read gazetteer", zap.Error(err))
	}
	rows := services.ZipcodeDocs(g.Infos())
	logger.Info("Gazetteer loaded", zap.Int("rows", len(rows)), zap.String("gazetteer_version", g.Version()))

	if *requestOut != "" {
		if err := writeSeedRequest(*requestOut, rows, !*skipIndex); err != nil {
			logger.Fatal("Cannot write seed request", zap.Error(err))
		}
		fmt.Printf("Seed request with %d rows written to %s\n", len(rows), *requestOut)
		return
	}

	if *dryRun {
		validation := services.NewAdminService(nil, nil, nil, logger).ValidateGazetteerData(rows)
		for _, w := range validation.Warnings {
			fmt.Println(w)
		}
		fmt.Printf("Validation passed: %t (%d rows)\n", validation.Passed, len(rows))
		if !validation.Passed {
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()
	mongoClient, err := bootstrap.ConnectMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())

	var searcher *search.PlaceSearcher
	if !*skipIndex {
		searcher, err = search.NewPlaceSearcher(search.SearchConfig{
			Host:      cfg.Meilisearch.URL,
			APIKey:    cfg.Meilisearch.MasterKey,
			IndexName: cfg.Meilisearch.Index,
			Timeout:   cfg.Meilisearch.Timeout,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Meilisearch", zap.Error(err))
		}
	}

	admin := services.NewAdminService(mongoClient.Database(cfg.Mongo.Database), searcher, nil, logger)
	result, err := admin.SeedGazetteer(ctx, rows, searcher != nil)
	if err != nil {
		logger.Fatal("Seed failed", zap.Error(err))
	}
	fmt.Printf("Seeded %d rows, gazetteer version %s, %d index steps\n",
		result.RowsProcessed, result.GazetteerVersion, result.IndexesBuilt)
}

func loadGazetteer(path string) (*reference.Gazetteer, error) {
	if path == "" {
		return reference.DefaultGazetteer()
	}
	return reference.LoadGazetteerFile(path)
}

func writeSeedRequest(path string, rows []models.ZipcodeDoc, rebuild bool) error {
	output, err := json.MarshalIndent(requests.SeedGazetteerRequest{
		Data:           rows,
		RebuildIndexes: rebuild,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, output, 0o644)
}
