package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/address-extractor/app/models"
	"github.com/address-extractor/internal/normalizer"
	"github.com/address-extractor/internal/reference"
	"github.com/address-extractor/internal/search"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ZipcodesCollection holds the gazetteer rows
const ZipcodesCollection = "zipcodes"

// AdminService manages the gazetteer, the place index and the result cache
type AdminService struct {
	db        *mongo.Database
	searcher  *search.PlaceSearcher
	cache     ICacheService
	logger    *zap.Logger
	startTime time.Time
}

// GazetteerValidation outcome of checking rows before a seed
type GazetteerValidation struct {
	Passed   bool     `json:"passed"`
	Warnings []string `json:"warnings"`
}

// SeedResult outcome of a gazetteer seed
type SeedResult struct {
	GazetteerVersion string `json:"gazetteer_version"`
	RowsProcessed    int    `json:"rows_processed"`
	IndexesBuilt     int    `json:"indexes_built"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// SystemStats runtime and storage counters
type SystemStats struct {
	Uptime        string                 `json:"uptime"`
	MemoryUsage   map[string]interface{} `json:"memory_usage"`
	Goroutines    int                    `json:"goroutines"`
	Cache         *CacheStats            `json:"cache,omitempty"`
	PlaceIndex    int64                  `json:"place_index_documents"`
	DatabaseStats DatabaseStats          `json:"database_stats"`
}

// DatabaseStats document counts per collection
type DatabaseStats struct {
	Zipcodes        int64 `json:"zipcodes"`
	ExtractionCache int64 `json:"extraction_cache"`
	Extractions     int64 `json:"extractions"`
}

// NewAdminService creates the service. db, searcher and cache may each be nil;
// operations that need a missing backend return an error.
func NewAdminService(db *mongo.Database, searcher *search.PlaceSearcher, cache ICacheService, logger *zap.Logger) *AdminService {
	return &AdminService{
		db:        db,
		searcher:  searcher,
		cache:     cache,
		logger:    logger,
		startTime: time.Now(),
	}
}

// ValidateGazetteerData checks rows before they replace the stored gazetteer
func (as *AdminService) ValidateGazetteerData(data []models.ZipcodeDoc) *GazetteerValidation {
	if len(data) == 0 {
		return &GazetteerValidation{Passed: false, Warnings: []string{"no rows to validate"}}
	}

	warnings := make([]string, 0)
	seen := make(map[string]int, len(data))
	for i := range data {
		row := &data[i]
		if !row.IsValid() {
			warnings = append(warnings, fmt.Sprintf("row %d: invalid zipcode %q, city %q or state %q", i, row.Zipcode, row.City, row.State))
			continue
		}
		if first, dup := seen[row.Zipcode]; dup {
			warnings = append(warnings, fmt.Sprintf("row %d: duplicate zipcode %s (first at row %d)", i, row.Zipcode, first))
		}
		seen[row.Zipcode] = i
		if _, ok := reference.StateCode(normalizer.FoldKey(row.State)); !ok {
			warnings = append(warnings, fmt.Sprintf("row %d: unknown state code %s", i, row.State))
		}
	}
	return &GazetteerValidation{Passed: len(warnings) == 0, Warnings: warnings}
}

// SeedGazetteer replaces the stored gazetteer with data and optionally reseeds the place index
func (as *AdminService) SeedGazetteer(ctx context.Context, data []models.ZipcodeDoc, rebuildIndexes bool) (*SeedResult, error) {
	if as.db == nil {
		return nil, errors.New("mongo is not configured")
	}
	startTime := time.Now()

	validation := as.ValidateGazetteerData(data)
	if !validation.Passed {
		return nil, fmt.Errorf("invalid gazetteer data: %v", validation.Warnings)
	}

	infos := ZipcodeInfos(data)
	version := reference.NewGazetteer(infos).Version()

	collection := as.db.Collection(ZipcodesCollection)
	deleteResult, err := collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("delete old zipcodes: %w", err)
	}
	as.logger.Info("Deleted old zipcodes", zap.Int64("deleted_count", deleteResult.DeletedCount))

	now := time.Now()
	documents := make([]interface{}, len(data))
	for i, row := range data {
		row.GazetteerVersion = version
		row.CreatedAt = now
		row.UpdatedAt = now
		documents[i] = row
	}
	if _, err := collection.InsertMany(ctx, documents); err != nil {
		return nil, fmt.Errorf("insert zipcodes: %w", err)
	}
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{bson.E{Key: "zipcode", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		as.logger.Warn("Cannot create zipcode index", zap.Error(err))
	}

	indexesBuilt := 0
	if rebuildIndexes && as.searcher != nil {
		n, err := as.RebuildPlaceIndex(ctx, infos)
		if err != nil {
			as.logger.Warn("Place index rebuild failed", zap.Error(err))
		} else {
			indexesBuilt = n
		}
	}

	processingTime := time.Since(startTime)
	as.logger.Info("Gazetteer seed completed",
		zap.String("gazetteer_version", version),
		zap.Int("rows_processed", len(data)),
		zap.Int("indexes_built", indexesBuilt),
		zap.Duration("processing_time", processingTime))

	return &SeedResult{
		GazetteerVersion: version,
		RowsProcessed:    len(data),
		IndexesBuilt:     indexesBuilt,
		ProcessingTimeMs: processingTime.Milliseconds(),
	}, nil
}

// LoadGazetteer builds a gazetteer from the stored rows
func (as *AdminService) LoadGazetteer(ctx context.Context) (*reference.Gazetteer, error) {
	if as.db == nil {
		return nil, errors.New("mongo is not configured")
	}
	cursor, err := as.db.Collection(ZipcodesCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("query zipcodes: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []models.ZipcodeDoc
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode zipcodes: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("zipcodes collection is empty")
	}
	return reference.NewGazetteer(ZipcodeInfos(rows)), nil
}

// RebuildPlaceIndex resets the index settings and seeds infos; it returns the number of steps done
func (as *AdminService) RebuildPlaceIndex(ctx context.Context, infos []reference.ZipcodeInfo) (int, error) {
	if as.searcher == nil {
		return 0, errors.New("meilisearch is not configured")
	}
	if err := as.searcher.BuildIndex(ctx); err != nil {
		return 0, fmt.Errorf("build place index: %w", err)
	}
	seeded, err := as.searcher.Seed(ctx, infos)
	if err != nil {
		return 1, fmt.Errorf("seed place index: %w", err)
	}
	as.logger.Info("Place index rebuilt", zap.Int("documents", seeded))
	return 2, nil
}

// InvalidateCache drops cached results built against any other gazetteer version, or everything when all is set
func (as *AdminService) InvalidateCache(ctx context.Context, currentVersion string, all bool) error {
	if as.cache == nil {
		return errors.New("cache is not configured")
	}
	if all {
		return as.cache.Clear(ctx)
	}
	return as.cache.InvalidateByGazetteerVersion(ctx, currentVersion)
}

// GetSystemStats collects runtime, cache and storage counters
func (as *AdminService) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := &SystemStats{
		Uptime: time.Since(as.startTime).Round(time.Second).String(),
		MemoryUsage: map[string]interface{}{
			"alloc_mb":       bToMb(m.Alloc),
			"total_alloc_mb": bToMb(m.TotalAlloc),
			"sys_mb":         bToMb(m.Sys),
			"num_gc":         m.NumGC,
		},
		Goroutines: runtime.NumGoroutine(),
	}

	if as.cache != nil {
		cacheStats, err := as.cache.GetStats(ctx)
		if err != nil {
			as.logger.Warn("Cannot read cache stats", zap.Error(err))
		} else {
			stats.Cache = cacheStats
		}
	}
	if as.searcher != nil {
		n, err := as.searcher.Stats()
		if err != nil {
			as.logger.Warn("Cannot read place index stats", zap.Error(err))
		}
		stats.PlaceIndex = n
	}
	if as.db != nil {
		dbStats, err := as.getDatabaseStats(ctx)
		if err != nil {
			return nil, fmt.Errorf("database stats: %w", err)
		}
		stats.DatabaseStats = *dbStats
	}
	return stats, nil
}

func (as *AdminService) getDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{}
	counts := []struct {
		collection string
		dst        *int64
	}{
		{ZipcodesCollection, &stats.Zipcodes},
		{ExtractionCacheCollection, &stats.ExtractionCache},
		{ExtractionsCollection, &stats.Extractions},
	}
	for _, c := range counts {
		n, err := as.db.Collection(c.collection).CountDocuments(ctx, bson.M{})
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c.collection, err)
		}
		*c.dst = n
	}
	return stats, nil
}

// ExportData dumps a collection for backup; zipcodes also export as CSV
func (as *AdminService) ExportData(ctx context.Context, dataType, format string, limit int) ([]byte, error) {
	if as.db == nil {
		return nil, errors.New("mongo is not configured")
	}
	switch dataType {
	case ZipcodesCollection, ExtractionCacheCollection, ExtractionsCollection:
	default:
		return nil, fmt.Errorf("unsupported data type %q", dataType)
	}
	if format != "json" && format != "csv" {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if format == "csv" && dataType != ZipcodesCollection {
		return nil, fmt.Errorf("csv export is only available for %s", ZipcodesCollection)
	}

	findOptions := options.Find()
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}
	cursor, err := as.db.Collection(dataType).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", dataType, err)
	}
	defer cursor.Close(ctx)

	if format == "csv" {
		var rows []models.ZipcodeDoc
		if err := cursor.All(ctx, &rows); err != nil {
			return nil, fmt.Errorf("decode %s: %w", dataType, err)
		}
		return ZipcodesCSV(rows)
	}

	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode %s: %w", dataType, err)
	}
	return json.MarshalIndent(results, "", "  ")
}

// ZipcodeInfos converts stored rows into gazetteer rows
func ZipcodeInfos(rows []models.ZipcodeDoc) []reference.ZipcodeInfo {
	infos := make([]reference.ZipcodeInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, reference.ZipcodeInfo{
			Zipcode:   row.Zipcode,
			City:      row.City,
			StateName: row.StateName,
			State:     row.State,
			County:    row.County,
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
		})
	}
	return infos
}

// ZipcodeDocs converts gazetteer rows into seedable documents
func ZipcodeDocs(infos []reference.ZipcodeInfo) []models.ZipcodeDoc {
	rows := make([]models.ZipcodeDoc, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, models.ZipcodeDoc{
			Zipcode:   info.Zipcode,
			City:      info.City,
			StateName: info.StateName,
			State:     info.State,
			County:    info.County,
			Latitude:  info.Latitude,
			Longitude: info.Longitude,
		})
	}
	return rows
}

// ZipcodesCSV writes rows in the layout reference.LoadGazetteerCSV reads
func ZipcodesCSV(rows []models.ZipcodeDoc) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"zipcode", "city", "state_name", "state", "county", "latitude", "longitude"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.Zipcode,
			row.City,
			row.StateName,
			row.State,
			row.County,
			strconv.FormatFloat(row.Latitude, 'f', -1, 64),
			strconv.FormatFloat(row.Longitude, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
