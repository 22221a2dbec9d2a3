package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/reviewflow/internal/etl"
	"github.com/BartekS5/reviewflow/internal/metrics"
	"github.com/BartekS5/reviewflow/pkg/logger"
	"github.com/BartekS5/reviewflow/pkg/models"
)

type fakeStore struct {
	run      *models.RunMetadata
	runErr   error
	counts   []models.ReasonCount
	runCalls int
	sumCalls int
}

func (f *fakeStore) LatestRun(context.Context) (*models.RunMetadata, error) {
	f.runCalls++
	return f.run, f.runErr
}

func (f *fakeStore) RejectionSummary(context.Context) ([]models.ReasonCount, error) {
	f.sumCalls++
	return f.counts, nil
}

func newTestServer(t *testing.T, store ReportStore, withCache bool) (http.Handler, *metrics.Metrics, *miniredis.Miniredis) {
	t.Helper()
	m := metrics.New()
	h := &Handlers{Store: store, TTL: time.Minute, Log: logger.Nop()}
	var mr *miniredis.Miniredis
	if withCache {
		mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		h.Cache = NewRedisCache(client, m)
	}
	s := New(logger.Nop(), m, Options{})
	s.MountHandlers(h)
	s.Mount("/metrics", m.Handler())
	return s.Handler(), m, mr
}

func get(t *testing.T, h http.Handler, path string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestServer(t, &fakeStore{}, false)
	rr := get(t, h, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestLatestRunCachedInRedis(t *testing.T) {
	store := &fakeStore{run: &models.RunMetadata{
		RunID:           "run-9",
		PipelineVersion: "1.0.0",
		Statistics:      models.RunStatistics{TotalRecordsProcessed: 10, CleanRecords: 7, RejectedRecords: 3},
	}}
	h, m, mr := newTestServer(t, store, true)

	first := get(t, h, "/v1/runs/latest", nil)
	require.Equal(t, http.StatusOK, first.Code)
	var got models.RunMetadata
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &got))
	assert.Equal(t, "run-9", got.RunID)
	assert.Equal(t, 7, got.Statistics.CleanRecords)
	assert.True(t, mr.Exists(keyLatestRun))

	second := get(t, h, "/v1/runs/latest", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, store.runCalls, "second request is served from cache")
	assert.Equal(t, first.Header().Get("ETag"), second.Header().Get("ETag"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheEvents.WithLabelValues("redis", "hit")))

	mr.FastForward(2 * time.Minute)
	get(t, h, "/v1/runs/latest", nil)
	assert.Equal(t, 2, store.runCalls, "expired entry is refreshed")
}

func TestLatestRunNotModified(t *testing.T) {
	h, _, _ := newTestServer(t, &fakeStore{run: &models.RunMetadata{RunID: "r"}}, false)
	first := get(t, h, "/v1/runs/latest", nil)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rr := get(t, h, "/v1/runs/latest", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rr.Code)
}

func TestLatestRunErrors(t *testing.T) {
	h, _, _ := newTestServer(t, &fakeStore{runErr: etl.ErrNoRuns}, false)
	rr := get(t, h, "/v1/runs/latest", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	h, _, _ = newTestServer(t, &fakeStore{runErr: errors.New("socket closed")}, false)
	rr = get(t, h, "/v1/runs/latest", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestRejectionSummary(t *testing.T) {
	store := &fakeStore{counts: []models.ReasonCount{
		{Reason: models.ReasonInvalidRating, Count: 3},
		{Reason: models.ReasonMissingBuyerID, Count: 1},
	}}
	h, _, _ := newTestServer(t, store, true)

	rr := get(t, h, "/v1/rejections/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got RejectionSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.EqualValues(t, 4, got.Total)
	require.Len(t, got.Reasons, 2)
	assert.InDelta(t, 75.0, got.Reasons[0].Percentage, 1e-9)

	get(t, h, "/v1/rejections/summary", nil)
	assert.Equal(t, 1, store.sumCalls)
}

func TestCacheFailureFallsBackToStore(t *testing.T) {
	store := &fakeStore{run: &models.RunMetadata{RunID: "r"}}
	h, _, mr := newTestServer(t, store, true)
	mr.Close()

	rr := get(t, h, "/v1/runs/latest", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, store.runCalls)
}

func TestMetricsEndpointAndHTTPCounters(t *testing.T) {
	h, m, _ := newTestServer(t, &fakeStore{}, false)
	get(t, h, "/healthz", nil)

	rr := get(t, h, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "reviewflow_http_requests_total")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/healthz", "GET", "200")))
}

func TestRateLimit(t *testing.T) {
	m := metrics.New()
	s := New(logger.Nop(), m, Options{RPS: 1, Burst: 1})
	s.MountHandlers(&Handlers{Store: &fakeStore{}, Log: logger.Nop()})

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/healthz", nil).Code)
	rr := get(t, s.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}
