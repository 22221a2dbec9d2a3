// Package metrics exposes pipeline and API counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BartekS5/reviewflow/pkg/models"
)

const namespace = "reviewflow"

// Metrics owns a dedicated registry so several instances can coexist in tests.
type Metrics struct {
	reg *prometheus.Registry

	Records       *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	Tables        *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec
	CacheEvents   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "records_total", Help: "Validated records by outcome."},
			[]string{"outcome"}, // accepted|rejected
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "rejections_total", Help: "Rejected records by reason."},
			[]string{"reason"},
		),
		Tables: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "tables_total", Help: "Source tables handled per stage."},
			[]string{"stage", "status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Name: "stage_duration_seconds",
				Help:    "Pipeline stage duration seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
			[]string{"route", "method", "status"},
		),
		HTTPLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Name: "http_request_duration_seconds",
				Help:    "HTTP request duration seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		CacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets."},
			[]string{"cache", "event"},
		),
	}
	m.reg.MustRegister(m.Records, m.Rejections, m.Tables, m.StageDuration, m.HTTPRequests, m.HTTPLatency, m.CacheEvents)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveValidation records the outcome of one validator pass.
func (m *Metrics) ObserveValidation(accepted int, rejected []models.RejectedRecord) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues("accepted").Add(float64(accepted))
	m.Records.WithLabelValues("rejected").Add(float64(len(rejected)))
	for _, r := range rejected {
		m.Rejections.WithLabelValues(string(r.RejectionReason)).Inc()
	}
}

func (m *Metrics) ObserveTable(stage string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.Tables.WithLabelValues(stage, status).Inc()
}

// Stage starts a timer; call the returned func when the stage ends.
func (m *Metrics) Stage(name string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() { m.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds()) }
}

func (m *Metrics) ObserveHTTP(route, method string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func (m *Metrics) ObserveCache(cache, event string) { // event: hit|miss|set
	if m == nil {
		return
	}
	m.CacheEvents.WithLabelValues(cache, event).Inc()
}
