// Package metrics exposes Prometheus collectors for the job portal pipeline and API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stageTasksTotal            *prometheus.CounterVec
	stageTaskDurationSeconds   *prometheus.HistogramVec
	pipelineRunsTotal          *prometheus.CounterVec
	cleanRecordsTotal          *prometheus.CounterVec
	cleanSkippedRowsTotal      *prometheus.CounterVec
	mapperFieldCoverageRatio   *prometheus.GaugeVec
	loadRowsTotal              *prometheus.CounterVec
	scrapeRowsTotal            *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	cacheLookupsTotal          *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		stageTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobportal_stage_tasks_total",
				Help: "Total number of pipeline tasks, labeled by stage and status.",
			},
			[]string{"stage", "status"},
		)

		stageTaskDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobportal_stage_task_duration_seconds",
				Help:    "Histogram of pipeline task durations, labeled by stage.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		)

		pipelineRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobportal_pipeline_runs_total",
				Help: "Total number of pipeline runs, labeled by final state.",
			},
			[]string{"state"},
		)

		cleanRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobportal_clean_records_total",
				Help: "Records seen by the cleaner, labeled by source and kind (new, duplicate, total).",
			},
			[]string{"source", "kind"},
		)

		cleanSkippedRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobportal_clean_skipped_rows_total",
				Help: "Malformed raw rows skipped by the cleaner, labeled by source.",
			},
			[]string{"source"},
		)

		mapperFieldCoverageRatio = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jobportal_mapper_field_coverage_ratio",
				Help: "Fraction of mapped records with a non-empty value, labeled by source and field.",
			},
			[]string{"source", "field"},
		)

		loadRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobportal_load_rows_total",
				Help: "Rows handled by the loader, labeled by outcome (inserted, skipped).",
			},
			[]string{"outcome"},
		)

		scrapeRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobportal_scrape_rows_total",
				Help: "Raw rows written by the scraper, labeled by source.",
			},
			[]string{"source"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobportal_cache_lookups_total",
				Help: "Listing cache lookups, labeled by result (hit, miss, error).",
			},
			[]string{"result"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTask records one finished pipeline task.
func ObserveTask(stage, status string, duration time.Duration) {
	Init()
	stageTasksTotal.WithLabelValues(stage, status).Inc()
	stageTaskDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRun records the final state of a pipeline run.
func ObserveRun(state string) {
	Init()
	pipelineRunsTotal.WithLabelValues(state).Inc()
}

// ObserveMerge records merge statistics for one clean run.
func ObserveMerge(source string, added, duplicates, total int) {
	Init()
	cleanRecordsTotal.WithLabelValues(source, "new").Add(float64(added))
	cleanRecordsTotal.WithLabelValues(source, "duplicate").Add(float64(duplicates))
	cleanRecordsTotal.WithLabelValues(source, "total").Add(float64(total))
}

// ObserveSkippedRows records malformed rows dropped while reading raw input.
func ObserveSkippedRows(source string, n int) {
	if n <= 0 {
		return
	}
	Init()
	cleanSkippedRowsTotal.WithLabelValues(source).Add(float64(n))
}

// SetFieldCoverage publishes per-field coverage ratios for a source.
func SetFieldCoverage(source string, ratios map[string]float64) {
	Init()
	for field, ratio := range ratios {
		mapperFieldCoverageRatio.WithLabelValues(source, field).Set(ratio)
	}
}

// ObserveLoad records loader outcomes.
func ObserveLoad(inserted, skipped int) {
	Init()
	loadRowsTotal.WithLabelValues("inserted").Add(float64(inserted))
	loadRowsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveScrapeRow increments the scraped row counter.
func ObserveScrapeRow(source string) {
	Init()
	scrapeRowsTotal.WithLabelValues(source).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveCacheLookup records a listing cache lookup result.
func ObserveCacheLookup(result string) {
	Init()
	cacheLookupsTotal.WithLabelValues(result).Inc()
}
