package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/reviewflow/internal/metrics"
	"github.com/BartekS5/reviewflow/pkg/models"
)

func TestObserveValidation(t *testing.T) {
	m := metrics.New()
	m.ObserveValidation(4, []models.RejectedRecord{
		{RejectionReason: models.ReasonDuplicateReviewID},
		{RejectionReason: models.ReasonInvalidRating},
		{RejectionReason: models.ReasonInvalidRating},
	})

	assert.Equal(t, 4.0, testutil.ToFloat64(m.Records.WithLabelValues("accepted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Records.WithLabelValues("rejected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Rejections.WithLabelValues("invalid_rating")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := metrics.New()
	m.ObserveTable("extract", errors.New("boom"))
	m.ObserveHTTP("/healthz", "GET", 200, 3*time.Millisecond)
	m.Stage("join")()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	assert.Contains(t, out, `reviewflow_tables_total{stage="extract",status="failed"} 1`)
	assert.Contains(t, out, "reviewflow_http_requests_total")
	assert.Contains(t, out, "reviewflow_stage_duration_seconds")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveValidation(1, nil)
	m.ObserveTable("load", nil)
	m.Stage("validate")()
	m.ObserveCache("redis", "hit")
}
