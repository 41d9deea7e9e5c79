package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertgate_requests_total",
		Help: "Total alert submissions, labelled by terminal outcome.",
	}, []string{"outcome"})

	PolicySuppressions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertgate_policy_suppressions_total",
		Help: "Total alerts suppressed by the policy engine, labelled by kind.",
	}, []string{"kind"})

	UpstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alertgate_mailmux_request_duration_ms",
		Help:    "Latency of the single outbound mailmux call in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	UpstreamResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertgate_mailmux_responses_total",
		Help: "Mailmux call outcomes, labelled by class (2xx, non-2xx, timeout, error).",
	}, []string{"class"})

	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alertgate_request_duration_ms",
		Help:    "End-to-end request handling latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	DedupeStoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alertgate_dedupe_store_keys",
		Help: "Current number of fingerprints tracked by the dedupe store.",
	})

	RateLimitStoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alertgate_ratelimit_store_keys",
		Help: "Current number of keys tracked by the rate-limit store.",
	})
)
