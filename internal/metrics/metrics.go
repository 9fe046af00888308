package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolution metrics
	PriceResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tariff_price_resolutions_total",
			Help: "Total number of price resolutions",
		},
		[]string{"outcome", "model"},
	)

	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tariff_resolution_duration_seconds",
			Help:    "Price resolution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CandidateSetSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tariff_candidate_set_size",
			Help:    "Number of rules surviving the candidate filter",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	// Availability metrics
	AvailabilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "station_availability_checks_total",
			Help: "Total number of station open/closed checks",
		},
		[]string{"result"},
	)

	// Cache metrics
	RuleCacheHit = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tariff_rule_cache_hit_total",
			Help: "Total number of rule cache hits",
		},
	)

	RuleCacheMiss = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tariff_rule_cache_miss_total",
			Help: "Total number of rule cache misses",
		},
	)

	// Lifecycle metrics
	RulesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tariff_rules_created_total",
			Help: "Total number of pricing rules created",
		},
		[]string{"model"},
	)

	RulesDeactivated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tariff_rules_deactivated_total",
			Help: "Total number of pricing rules deactivated",
		},
		[]string{"reason"},
	)

	// Worker metrics
	ExpirySweepRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tariff_expiry_sweep_runs_total",
			Help: "Total number of expired-rule sweep executions",
		},
	)

	ExpirySweepDeactivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tariff_expiry_sweep_deactivated_total",
			Help: "Total number of rules deactivated by the expiry sweep",
		},
	)
)
