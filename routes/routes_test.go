package routes

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/address-extractor/app/controllers"
	"github.com/address-extractor/app/models"
	"github.com/address-extractor/app/responses"
	"github.com/address-extractor/app/services"
	"github.com/address-extractor/internal/reference"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router  *gin.Engine
	extract *services.ExtractService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ref, err := reference.Default()
	require.NoError(t, err)
	logger := zap.NewNop()
	cache := services.NewCacheService(time.Hour)

	extractService := services.NewExtractService(ref, cache, services.ExtractServiceConfig{Workers: 2, Hints: true}, logger)
	adminService := services.NewAdminService(nil, nil, cache, logger)

	router := gin.New()
	SetupAllRoutes(router, Controllers{
		Extract: controllers.NewExtractController(extractService, nil, nil, controllers.ExtractLimits{BatchLimit: 3, MaxTextBytes: 200}, logger),
		Places:  controllers.NewPlacesController(ref, nil, 20, logger),
		Admin:   controllers.NewAdminController(adminService, extractService, ref, logger),
	}, 5*time.Second, logger)

	return &testServer{router: router, extract: extractService}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestExtractEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body := gin.H{"text": "Jason lives at 13 Maple Street Phoenix, AZ 85053 with his cats.", "options": gin.H{"use_cache": true}}
	w := ts.do(t, http.MethodPost, "/v1/extract", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp responses.ExtractResponse
	decode(t, w, &resp)
	assert.False(t, resp.CacheHit)
	assert.Equal(t, 1, resp.Valid)
	require.Len(t, resp.Addresses, 1)
	assert.Equal(t, "13 Maple Street Phoenix AZ 85053", resp.Addresses[0].CanonicalText)
	assert.Equal(t, 3, resp.Addresses[0].Offset)

	w = ts.do(t, http.MethodPost, "/v1/extract", body)
	decode(t, w, &resp)
	assert.True(t, resp.CacheHit)
}

func TestExtractEndpoint_AbsentFieldsAreNull(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/extract", gin.H{"text": "13 Maple St Phoenix AZ 85053"})
	require.Equal(t, http.StatusOK, w.Code)

	var raw struct {
		Addresses []struct {
			Components map[string]interface{} `json:"components"`
		} `json:"addresses"`
	}
	decode(t, w, &raw)
	require.Len(t, raw.Addresses, 1)
	components := raw.Addresses[0].Components
	assert.Equal(t, "13", components["street_number"])
	value, present := components["unit_type"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestExtractEndpoint_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/extract", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errResp responses.ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, "INVALID_REQUEST", errResp.Error)
	assert.NotEmpty(t, errResp.Timestamp)

	w = ts.do(t, http.MethodPost, "/v1/extract", gin.H{"text": strings.Repeat("a", 201)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestParseEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/parse", gin.H{"address": "13 Maple St Phenix AZ 85053"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp responses.ParseResponse
	decode(t, w, &resp)
	assert.Equal(t, ts.extract.GazetteerVersion(), resp.GazetteerVersion)
	assert.Equal(t, models.StatusInvalid, resp.Result.Status)
	assert.Equal(t, "InvalidCityStateZipCombo", resp.Result.ErrorTag)
	require.NotNil(t, resp.Result.Hint)
	assert.Equal(t, "Phoenix", resp.Result.Hint.ExpectedCity)
}

func waitForJob(t *testing.T, ts *testServer, jobID string) responses.JobStatusResponse {
	t.Helper()
	var status responses.JobStatusResponse
	require.Eventually(t, func() bool {
		w := ts.do(t, http.MethodGet, "/v1/extract/jobs/"+jobID+"/status", nil)
		if w.Code != http.StatusOK {
			return false
		}
		decode(t, w, &status)
		return status.Status == models.JobStatusDone
	}, 5*time.Second, 10*time.Millisecond)
	return status
}

func TestJobEndpoints(t *testing.T) {
	ts := newTestServer(t)

	docs := []string{"13 Maple St Phoenix AZ 85053", "no addresses here"}
	w := ts.do(t, http.MethodPost, "/v1/extract/jobs", gin.H{"documents": docs})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted responses.BatchExtractResponse
	decode(t, w, &accepted)
	assert.Equal(t, 2, accepted.TotalDocuments)
	require.NotEmpty(t, accepted.JobID)

	status := waitForJob(t, ts, accepted.JobID)
	assert.Equal(t, 2, status.Processed)

	w = ts.do(t, http.MethodGet, "/v1/extract/jobs/"+accepted.JobID+"/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []models.ExtractionResult `json:"data"`
	}
	decode(t, w, &envelope)
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, 1, envelope.Data[0].Valid)
	assert.Equal(t, 0, envelope.Data[1].Total)

	w = ts.do(t, http.MethodGet, "/v1/extract/jobs/"+accepted.JobID+"/results?format=ndjson", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.Len(t, readNDJSON(t, w.Body), 2)

	w = ts.do(t, http.MethodGet, "/v1/extract/jobs/"+accepted.JobID+"/results?format=ndjson&gzip=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	assert.Len(t, readNDJSON(t, gz), 2)
}

func readNDJSON(t *testing.T, r io.Reader) []models.ExtractionResult {
	t.Helper()
	var out []models.ExtractionResult
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var result models.ExtractionResult
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &result))
		out = append(out, result)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJobEndpoints_Errors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/extract/jobs", gin.H{"documents": []string{"a", "b", "c", "d"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/extract/jobs", gin.H{"documents": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/v1/extract/jobs/missing/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/v1/extract/jobs/missing/results?format=ndjson", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.extract.CreateJob("pending-job", 1)
	w = ts.do(t, http.MethodGet, "/v1/extract/jobs/pending-job/results", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestQueueEndpoints_Disabled(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/extract/queue", gin.H{"text": "13 Maple St Phoenix AZ 85053"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = ts.do(t, http.MethodGet, "/v1/extract/queue/abc", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPlacesEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/v1/places/zipcodes/85053-1234", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var place models.Place
	decode(t, w, &place)
	assert.Equal(t, "Phoenix", place.City)
	assert.Equal(t, "AZ", place.State)

	w = ts.do(t, http.MethodGet, "/v1/places/zipcodes/00000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/v1/places/search?q=phoenix", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	ts := newTestServer(t)

	seed := gin.H{"data": []gin.H{
		{"zipcode": "85053", "city": "Phoenix", "state_name": "Arizona", "state": "AZ"},
		{"zipcode": "85053", "city": "Phoenix", "state_name": "Arizona", "state": "AZ"},
	}}
	w := ts.do(t, http.MethodPost, "/v1/admin/gazetteer/seed?dry_run=true", seed)
	require.Equal(t, http.StatusOK, w.Code)
	var dry responses.SeedGazetteerResponse
	decode(t, w, &dry)
	assert.True(t, dry.DryRun)
	assert.False(t, dry.ValidationPassed)
	assert.Len(t, dry.Warnings, 1)

	w = ts.do(t, http.MethodPost, "/v1/admin/gazetteer/seed", seed)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/admin/cache/invalidate", gin.H{"all": true})
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/admin/cache/invalidate", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/v1/admin/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/admin/indexes/build", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = ts.do(t, http.MethodGet, "/v1/admin/export/unknown", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndIndex(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/health", "/ready", "/v1/health"} {
		w := ts.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		var health responses.HealthCheckResponse
		decode(t, w, &health)
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, ts.extract.GazetteerVersion(), health.GazetteerVersion)
		assert.Equal(t, "disabled", health.Services["queue"])
	}

	w := ts.do(t, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/live", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 8)

	id := "3f2b8c4e-9a61-4d1f-b2a7-5c0e8d7f6a13"
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
}
