package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "records_created_total",
		Help: "Total number of records created",
	}, []string{"resource"})

	RecordsUpdatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "records_updated_total",
		Help: "Total number of records updated",
	}, []string{"resource"})

	RecordsDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "records_deleted_total",
		Help: "Total number of records deleted",
	}, []string{"resource"})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_failures_total",
		Help: "Total number of rejected record payloads",
	}, []string{"resource"})

	DuplicateKeysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duplicate_keys_total",
		Help: "Total number of writes rejected by a uniqueness constraint",
	}, []string{"resource"})

	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_errors_total",
		Help: "Total number of document store faults",
	}, []string{"resource", "operation"})

	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_operation_latency_seconds",
		Help:    "Latency of document store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource", "operation"})

	StoreConnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_connects_total",
		Help: "Document store connection attempts",
	}, []string{"result"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "record_events_published_total",
		Help: "Total number of record events published",
	}, []string{"event_type"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "record_events_publish_failed_total",
		Help: "Total number of record events that could not be published",
	}, []string{"event_type"})

	LowStockAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of low stock alerts raised",
	}, []string{"resource"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
