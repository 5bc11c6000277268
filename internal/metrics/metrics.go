// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcel_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parcel_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parcel_bookings_created_total",
		Help: "Bookings successfully created.",
	})

	IdentifierConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcel_identifier_conflicts_total",
			Help: "Duplicate identifier errors seen while creating records.",
		},
		[]string{"record"},
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcel_transitions_total",
			Help: "Bookings moved to a status.",
		},
		[]string{"to"},
	)

	ManifestsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcel_manifests_created_total",
			Help: "Loading and unloading manifests created.",
		},
		[]string{"direction"},
	)

	VouchersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcel_vouchers_created_total",
			Help: "Credit and collection vouchers created.",
		},
		[]string{"kind"},
	)
)
