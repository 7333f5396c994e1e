// Package metrics provides Prometheus metrics collection for the wellness
// dashboard. It covers prediction serving, validation outcomes, audit
// persistence and HTTP activity, exposed via the metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction serving
	PredictionsTotal   prometheus.Counter   // Total predictions served
	ValidationFailures prometheus.Counter   // Records rejected before the model
	ExplainerDegraded  prometheus.Counter   // Results served without attributions
	PredictionLatency  prometheus.Histogram // End-to-end pipeline latency in seconds
	ConfidenceScores   prometheus.Histogram // Distribution of served confidence scores
	ModelAge           prometheus.Gauge     // Age of the loaded artifact in seconds

	// Batch screening
	CSVRowsProcessed prometheus.Counter // CSV rows accepted for prediction
	CSVRowsRejected  prometheus.Counter // CSV rows rejected by validation

	// Persistence and transport
	AuditWrites      prometheus.Counter // Prediction audit rows written
	SessionsIssued   prometheus.Counter // Login sessions issued
	FeedClients      prometheus.Gauge   // Connected live-feed websocket clients
	RequestsRejected prometheus.Counter // HTTP requests rejected by auth

	// System
	ErrorsTotal prometheus.Counter // Total errors encountered
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_failures_total",
			Help: "Total number of records rejected by validation",
		}),
		ExplainerDegraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "explainer_degraded_total",
			Help: "Total number of predictions served without attributions",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction pipeline latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		ConfidenceScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence_scores",
			Help:    "Distribution of served confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_artifact_age_seconds",
			Help: "Age of the loaded model artifact in seconds",
		}),
		CSVRowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "csv_rows_processed_total",
			Help: "Total number of CSV rows accepted for batch prediction",
		}),
		CSVRowsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "csv_rows_rejected_total",
			Help: "Total number of CSV rows rejected by validation",
		}),
		AuditWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_writes_total",
			Help: "Total number of prediction audit rows written",
		}),
		SessionsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessions_issued_total",
			Help: "Total number of login sessions issued",
		}),
		FeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feed_clients",
			Help: "Number of connected live-feed websocket clients",
		}),
		RequestsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "requests_rejected_total",
			Help: "Total number of HTTP requests rejected by authentication",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}
