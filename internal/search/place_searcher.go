// Package search keeps a Meilisearch index of gazetteer places and explains
// city/state/zipcode mismatches. Neither is consulted by the extractor.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/address-extractor/app/models"
	"github.com/address-extractor/internal/reference"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

// DefaultIndexName is the index used when SearchConfig.IndexName is empty.
const DefaultIndexName = "places"

const seedBatchSize = 1000

// SearchConfig configures the Meilisearch connection
type SearchConfig struct {
	Host          string
	APIKey        string
	IndexName     string
	Timeout       time.Duration
	MaxCandidates int
}

// PlaceSearcher searches gazetteer places by city, state or county name
type PlaceSearcher struct {
	client        meilisearch.ServiceManager
	logger        *zap.Logger
	indexName     string
	timeout       time.Duration
	maxCandidates int
}

// NewPlaceSearcher connects to Meilisearch and checks its health
func NewPlaceSearcher(config SearchConfig, logger *zap.Logger) (*PlaceSearcher, error) {
	client := meilisearch.New(config.Host, meilisearch.WithAPIKey(config.APIKey))

	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("cannot reach meilisearch: %w", err)
	}

	ps := &PlaceSearcher{
		client:        client,
		logger:        logger,
		indexName:     config.IndexName,
		timeout:       config.Timeout,
		maxCandidates: config.MaxCandidates,
	}
	if ps.indexName == "" {
		ps.indexName = DefaultIndexName
	}
	if ps.timeout <= 0 {
		ps.timeout = 30 * time.Second
	}
	if ps.maxCandidates <= 0 {
		ps.maxCandidates = 20
	}
	return ps, nil
}

// IndexName returns the index the searcher reads and writes.
func (ps *PlaceSearcher) IndexName() string {
	return ps.indexName
}

// BuildIndex applies the place index settings
func (ps *PlaceSearcher) BuildIndex(ctx context.Context) error {
	index := ps.client.Index(ps.indexName)

	task, err := index.UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: []string{"city", "state_name", "county", "zipcode"},
		FilterableAttributes: []string{"state", "zipcode"},
		SortableAttributes:   []string{"zipcode", "city"},
		RankingRules:         []string{"words", "typo", "proximity", "attribute", "sort", "exactness"},
		Synonyms: map[string][]string{
			"saint": {"st"},
			"st":    {"saint"},
			"mount": {"mt"},
			"mt":    {"mount"},
			"fort":  {"ft"},
			"ft":    {"fort"},
		},
	})
	if err != nil {
		return fmt.Errorf("update place index settings: %w", err)
	}
	ps.logger.Info("Place index settings submitted",
		zap.String("index", ps.indexName),
		zap.Int64("task_uid", task.TaskUID))

	return ps.waitForTask(ctx, task.TaskUID)
}

// Seed adds gazetteer rows to the index in batches and returns the number of
// documents submitted.
func (ps *PlaceSearcher) Seed(ctx context.Context, infos []reference.ZipcodeInfo) (int, error) {
	if len(infos) == 0 {
		return 0, errors.New("no places to seed")
	}

	index := ps.client.Index(ps.indexName)
	documents := PlaceDocuments(infos)

	for i := 0; i < len(documents); i += seedBatchSize {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		end := i + seedBatchSize
		if end > len(documents) {
			end = len(documents)
		}

		task, err := index.AddDocuments(documents[i:end], "id")
		if err != nil {
			return i, fmt.Errorf("add place batch %d-%d: %w", i, end, err)
		}
		ps.logger.Info("Place batch submitted",
			zap.Int("from", i),
			zap.Int("to", end),
			zap.Int64("task_uid", task.TaskUID))
	}

	ps.logger.Info("Place index seeded", zap.Int("total_documents", len(documents)))
	return len(documents), nil
}

// Search looks places up by free text, optionally restricted to a state code.
func (ps *PlaceSearcher) Search(query, state string, limit int) ([]models.Place, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query must not be empty")
	}
	if limit <= 0 || limit > ps.maxCandidates {
		limit = ps.maxCandidates
	}

	req := &meilisearch.SearchRequest{
		Limit:  int64(limit),
		Filter: StateFilter(state),
	}
	result, err := ps.client.Index(ps.indexName).Search(query, req)
	if err != nil {
		return nil, fmt.Errorf("search places: %w", err)
	}
	return parseHits(result.Hits), nil
}

// Stats returns the number of indexed documents.
func (ps *PlaceSearcher) Stats() (int64, error) {
	stats, err := ps.client.Index(ps.indexName).GetStats()
	if err != nil {
		return 0, fmt.Errorf("place index stats: %w", err)
	}
	return stats.NumberOfDocuments, nil
}

func (ps *PlaceSearcher) waitForTask(ctx context.Context, taskUID int64) error {
	ctx, cancel := context.WithTimeout(ctx, ps.timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		task, err := ps.client.GetTask(taskUID)
		if err != nil {
			return fmt.Errorf("check task %d: %w", taskUID, err)
		}
		switch task.Status {
		case "succeeded":
			return nil
		case "failed", "canceled":
			return fmt.Errorf("task %d %s: %s", taskUID, task.Status, task.Error.Message)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for task %d: %w", taskUID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// PlaceDocuments converts gazetteer rows into index documents keyed by zipcode.
func PlaceDocuments(infos []reference.ZipcodeInfo) []map[string]interface{} {
	documents := make([]map[string]interface{}, 0, len(infos))
	for _, info := range infos {
		documents = append(documents, map[string]interface{}{
			"id":         info.Zipcode,
			"zipcode":    info.Zipcode,
			"city":       info.City,
			"state":      info.State,
			"state_name": info.StateName,
			"county":     info.County,
			"latitude":   info.Latitude,
			"longitude":  info.Longitude,
		})
	}
	return documents
}

// StateFilter builds the filter expression for a state code; "" means no filter.
func StateFilter(state string) string {
	state = strings.TrimSpace(state)
	if state == "" {
		return ""
	}
	return fmt.Sprintf("state = %q", strings.ToUpper(state))
}

func parseHits(hits []interface{}) []models.Place {
	places := make([]models.Place, 0, len(hits))
	for _, hit := range hits {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}

		place := models.Place{}
		if zipcode, ok := hitMap["zipcode"].(string); ok {
			place.Zipcode = zipcode
		}
		if city, ok := hitMap["city"].(string); ok {
			place.City = city
		}
		if state, ok := hitMap["state"].(string); ok {
			place.State = state
		}
		if stateName, ok := hitMap["state_name"].(string); ok {
			place.StateName = stateName
		}
		if county, ok := hitMap["county"].(string); ok {
			place.County = county
		}
		if lat, ok := hitMap["latitude"].(float64); ok {
			place.Latitude = lat
		}
		if lng, ok := hitMap["longitude"].(float64); ok {
			place.Longitude = lng
		}
		if place.Zipcode == "" {
			continue
		}
		places = append(places, place)
	}
	return places
}
