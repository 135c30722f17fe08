// Package metrics provides Prometheus metrics for the schedule service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nrm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nrm_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AI service metrics
	AICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nrm_ai_calls_total",
			Help: "Total number of calls to the AI classification service",
		},
		[]string{"operation", "status"},
	)

	AICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nrm_ai_call_duration_seconds",
			Help:    "Latency of AI classification calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// Upload metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nrm_uploads_total",
			Help: "Total number of accepted uploads",
		},
		[]string{"kind"},
	)

	RowsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nrm_rows_extracted_total",
			Help: "Total number of schedule rows parsed from CSV uploads",
		},
	)

	PDFSplitsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nrm_pdf_splits_active",
			Help: "Number of PDF split tasks currently running",
		},
	)
)
