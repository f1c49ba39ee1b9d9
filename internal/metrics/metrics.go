// Package metrics exposes the Prometheus registry and the ingestion
// counters served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "equiscan"

// Registry is the global Prometheus registry for all metrics.
var Registry = prometheus.NewRegistry()

// ScansTotal counts scan runs by source key and terminal status.
var ScansTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Scan runs by source and terminal status",
	},
	[]string{"source", "status"},
)

// ScanDuration tracks end-to-end scan duration per source.
var ScanDuration = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "End-to-end scan duration in seconds",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	},
	[]string{"source"},
)

// EventsProcessed counts per-event outcomes within scans.
// Outcomes: inserted, updated, skipped.
var EventsProcessed = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_processed_total",
		Help:      "Extracted events by source and processing outcome",
	},
	[]string{"source", "outcome"},
)

// GeocodeLookups counts geocoding cascade outcomes.
// Tiers: cache, parser, postcode, search; outcome hit or miss.
var GeocodeLookups = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocode_lookups_total",
		Help:      "Geocoding lookups by tier and outcome",
	},
	[]string{"tier", "outcome"},
)

// VenuesCreated counts venues created at scan time (not seeded).
var VenuesCreated = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "venues_created_total",
		Help:      "Venues created because no existing venue matched",
	},
)

// HTTPRequests counts API requests by route and status class.
var HTTPRequests = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "API requests by route, method, and status",
	},
	[]string{"route", "method", "status"},
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}
