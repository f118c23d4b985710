package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/address-extractor/app/models"
	"github.com/address-extractor/app/requests"
	"github.com/address-extractor/helpers/utils"
	"github.com/address-extractor/internal/extractor"
	"github.com/address-extractor/internal/reference"
	"github.com/address-extractor/internal/search"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrJobNotFinished = errors.New("job has not finished")
)

// perDocumentEstimate is the planning figure behind EstimateBatchProcessingTime
const perDocumentEstimate = 20 * time.Millisecond

// JobStatus progress of a background extraction job
type JobStatus struct {
	JobID              string
	Status             string
	Progress           float64
	Processed          int
	Total              int
	EstimatedRemaining int
	Message            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ExtractServiceConfig tunes the service; zero Workers uses GOMAXPROCS
type ExtractServiceConfig struct {
	Workers int
	Hints   bool
}

// ExtractService scans documents, caches results by document fingerprint and runs batch jobs
type ExtractService struct {
	extractor *extractor.Extractor
	ref       *reference.Reference
	suggester *search.CitySuggester
	cache     ICacheService
	logger    *zap.Logger
	workers   int
	startTime time.Time

	documents int64
	addresses int64
	valid     int64

	mu         sync.RWMutex
	jobs       map[string]*JobStatus
	jobResults map[string][]*models.ExtractionResult
}

// NewExtractService creates the service. cache may be nil to disable caching.
func NewExtractService(ref *reference.Reference, cache ICacheService, cfg ExtractServiceConfig, logger *zap.Logger) *ExtractService {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	s := &ExtractService{
		extractor:  extractor.New(ref, logger.Named("extractor")),
		ref:        ref,
		cache:      cache,
		logger:     logger,
		workers:    workers,
		startTime:  time.Now(),
		jobs:       make(map[string]*JobStatus),
		jobResults: make(map[string][]*models.ExtractionResult),
	}
	if cfg.Hints {
		s.suggester = search.NewCitySuggester(ref)
	}
	return s
}

// GazetteerVersion identifies the reference data results are computed against
func (s *ExtractService) GazetteerVersion() string {
	return s.ref.Version()
}

// Extract scans one document. The boolean reports a cache hit.
func (s *ExtractService) Extract(ctx context.Context, text string, opts requests.ExtractOptions) (*models.ExtractionResult, bool, error) {
	fingerprint := utils.Fingerprint(text, s.GazetteerVersion())

	if opts.UseCache && s.cache != nil {
		cached, found, err := s.cache.Get(ctx, fingerprint)
		if err != nil {
			s.logger.Warn("Cache read failed", zap.String("fingerprint", fingerprint), zap.Error(err))
		} else if found {
			return applyOptions(cached, opts), true, nil
		}
	}

	result, err := s.scan(ctx, text, fingerprint)
	if err != nil {
		return nil, false, err
	}

	if opts.UseCache && s.cache != nil {
		if err := s.cache.Set(ctx, fingerprint, result); err != nil {
			s.logger.Warn("Cache write failed", zap.String("fingerprint", fingerprint), zap.Error(err))
		}
	}
	return applyOptions(result, opts), false, nil
}

// ParseAddress classifies text as one window starting at its first token
func (s *ExtractService) ParseAddress(text string) models.AddressResult {
	return s.toAddressResult(s.extractor.Parse(text))
}

// ExtractBatch scans documents concurrently, results in input order
func (s *ExtractService) ExtractBatch(ctx context.Context, texts []string, opts requests.ExtractOptions) ([]*models.ExtractionResult, error) {
	return s.extractBatch(ctx, texts, opts, nil)
}

func (s *ExtractService) extractBatch(ctx context.Context, texts []string, opts requests.ExtractOptions, onDone func()) ([]*models.ExtractionResult, error) {
	results := make([]*models.ExtractionResult, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			result, _, err := s.Extract(gctx, text, opts)
			if err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
			results[i] = result
			if onDone != nil {
				onDone()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *ExtractService) scan(ctx context.Context, text, fingerprint string) (*models.ExtractionResult, error) {
	addrs, err := s.extractor.ExtractAllParallel(ctx, text, s.workers)
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}

	result := &models.ExtractionResult{
		DocumentFingerprint: fingerprint,
		GazetteerVersion:    s.GazetteerVersion(),
		Addresses:           make([]models.AddressResult, 0, len(addrs)),
		Total:               len(addrs),
		ExtractedAt:         time.Now(),
	}
	for _, addr := range addrs {
		result.Addresses = append(result.Addresses, s.toAddressResult(addr))
		if addr.Valid() {
			result.Valid++
		} else {
			result.Invalid++
		}
	}

	atomic.AddInt64(&s.documents, 1)
	atomic.AddInt64(&s.addresses, int64(result.Total))
	atomic.AddInt64(&s.valid, int64(result.Valid))
	return result, nil
}

func (s *ExtractService) toAddressResult(addr *extractor.Address) models.AddressResult {
	var hint *models.CityHint
	if s.suggester != nil {
		hint, _ = s.suggester.Suggest(addr)
	}
	return NewAddressResult(addr, hint)
}

// NewAddressResult converts a classified window into its API form
func NewAddressResult(addr *extractor.Address, hint *models.CityHint) models.AddressResult {
	result := models.AddressResult{
		Offset:        addr.Offset(),
		Status:        models.StatusValid,
		CanonicalText: addr.String(),
		Rendered:      addr.Render(),
		Components:    componentsOf(addr),
		Tokens:        addr.Tokens(),
	}
	if !addr.Valid() {
		result.Status = models.StatusInvalid
		result.ErrorTag = string(addr.Tag())
		result.ErrorMessage = addr.Message()
		result.Hint = hint
	}
	return result
}

func componentsOf(addr *extractor.Address) models.AddressComponents {
	field := func(f extractor.Field) *string {
		v, ok := addr.Get(f)
		if !ok {
			return nil
		}
		return &v
	}
	return models.AddressComponents{
		StreetNumber:    field(extractor.FieldStreetNumber),
		StreetDirection: field(extractor.FieldDirection),
		StreetName:      field(extractor.FieldStreetName),
		StreetType:      field(extractor.FieldStreetType),
		UnitType:        field(extractor.FieldUnitType),
		UnitNumber:      field(extractor.FieldUnitNumber),
		City:            field(extractor.FieldCity),
		State:           field(extractor.FieldState),
		Zipcode:         field(extractor.FieldZipcode),
	}
}

// applyOptions never mutates r, which may be shared with the cache
func applyOptions(r *models.ExtractionResult, opts requests.ExtractOptions) *models.ExtractionResult {
	if !opts.ValidOnly {
		return r
	}
	filtered := *r
	filtered.Addresses = r.ValidAddresses()
	return &filtered
}

// EstimateBatchProcessingTime returns a rough duration in seconds
func (s *ExtractService) EstimateBatchProcessingTime(documentCount int) int {
	perWorker := (documentCount + s.workers - 1) / s.workers
	seconds := int((time.Duration(perWorker) * perDocumentEstimate).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// CreateJob registers a pending job so its status is visible before processing starts
func (s *ExtractService) CreateJob(jobID string, total int) {
	now := time.Now()
	s.mu.Lock()
	s.jobs[jobID] = &JobStatus{
		JobID:              jobID,
		Status:             models.JobStatusPending,
		Total:              total,
		EstimatedRemaining: s.EstimateBatchProcessingTime(total),
		Message:            "queued",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.mu.Unlock()
}

// ProcessJob runs a batch job to completion, recording progress as documents finish
func (s *ExtractService) ProcessJob(ctx context.Context, jobID string, texts []string, opts requests.ExtractOptions) {
	s.mu.Lock()
	job, exists := s.jobs[jobID]
	if !exists {
		job = &JobStatus{JobID: jobID, Total: len(texts), CreatedAt: time.Now()}
		s.jobs[jobID] = job
	}
	job.Status = models.JobStatusRunning
	job.Message = "processing"
	job.UpdatedAt = time.Now()
	s.mu.Unlock()

	var processed int64
	results, err := s.extractBatch(ctx, texts, opts, func() {
		n := int(atomic.AddInt64(&processed, 1))
		s.mu.Lock()
		job.Processed = n
		job.Progress = float64(n) / float64(len(texts))
		job.EstimatedRemaining = s.EstimateBatchProcessingTime(len(texts) - n)
		job.UpdatedAt = time.Now()
		s.mu.Unlock()
	})

	s.mu.Lock()
	job.UpdatedAt = time.Now()
	job.EstimatedRemaining = 0
	if err != nil {
		job.Status = models.JobStatusFailed
		job.Message = err.Error()
	} else {
		job.Status = models.JobStatusDone
		job.Progress = 1
		job.Message = "completed"
		s.jobResults[jobID] = results
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Batch job failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	s.logger.Info("Batch job completed",
		zap.String("job_id", jobID),
		zap.Int("total_documents", len(texts)))
}

// GetJobStatus returns a snapshot of the job
func (s *ExtractService) GetJobStatus(jobID string) (*JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// GetJobResults returns the results of a finished job
func (s *ExtractService) GetJobResults(jobID string) ([]*models.ExtractionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	results, ok := s.jobResults[jobID]
	if !ok {
		if job.Status == models.JobStatusFailed {
			return nil, fmt.Errorf("job %s failed: %s", jobID, job.Message)
		}
		return nil, ErrJobNotFinished
	}
	return results, nil
}

// GetJobResultsStream feeds the results of a finished job through a channel
func (s *ExtractService) GetJobResultsStream(jobID string) (<-chan *models.ExtractionResult, error) {
	results, err := s.GetJobResults(jobID)
	if err != nil {
		return nil, err
	}

	resultChannel := make(chan *models.ExtractionResult, 100)
	go func() {
		defer close(resultChannel)
		for _, result := range results {
			resultChannel <- result
		}
	}()
	return resultChannel, nil
}

// GetStartTime returns when the service was created
func (s *ExtractService) GetStartTime() time.Time {
	return s.startTime
}

// GetStats returns service counters
func (s *ExtractService) GetStats() map[string]interface{} {
	s.mu.RLock()
	jobs := len(s.jobs)
	s.mu.RUnlock()

	return map[string]interface{}{
		"uptime_seconds":      int64(time.Since(s.startTime).Seconds()),
		"start_time":          s.startTime.Format(time.RFC3339),
		"status":              "running",
		"gazetteer_version":   s.GazetteerVersion(),
		"documents_processed": atomic.LoadInt64(&s.documents),
		"addresses_found":     atomic.LoadInt64(&s.addresses),
		"valid_addresses":     atomic.LoadInt64(&s.valid),
		"jobs":                jobs,
		"workers":             s.workers,
	}
}
