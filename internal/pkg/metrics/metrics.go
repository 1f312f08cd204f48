package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gasgate_actions_total",
		Help: "Sponsored relay actions by outcome",
	}, []string{"action", "status"})

	SignaturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gasgate_signatures_total",
		Help: "Typed-data signatures produced",
	}, []string{"signer", "kind"})

	SubmitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gasgate_submit_seconds",
		Help:    "Time from broadcast to receipt",
		Buckets: []float64{0.5, 1, 2, 4, 6, 12, 24, 48, 96},
	}, []string{"method"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gasgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	QuotaRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gasgate_quota_rejects_total",
		Help: "Requests rejected by the per-client quota guard",
	}, []string{"reason"})
)
