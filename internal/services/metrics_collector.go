package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector exposes the engine's Prometheus metrics. A nil collector
// is valid everywhere it is consumed, so tests can skip registration.
type MetricsCollector struct {
	recommendationRequests prometheus.Counter
	recommendationLatency  prometheus.Histogram
	scoringDuration        prometheus.Histogram
	cascadeTierResults     *prometheus.CounterVec
	curationOutcomes       *prometheus.CounterVec
	interactionsPublished  *prometheus.CounterVec
	trendingSetSize        *prometheus.GaugeVec
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		recommendationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total number of recommendation requests",
		}),
		recommendationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recommendation_latency_seconds",
			Help:    "Recommendation request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}),
		scoringDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "event_scoring_duration_seconds",
			Help:    "Time spent scoring and ranking one candidate batch",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		cascadeTierResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cascade_tier_results_total",
			Help: "Items produced per cascade tier",
		}, []string{"tier"}),
		curationOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "curation_outcomes_total",
			Help: "Curation attempts by source and outcome",
		}, []string{"source", "outcome"}),
		interactionsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "interactions_published_total",
			Help: "User interactions published to the event stream",
		}, []string{"type"}),
		trendingSetSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trending_set_size",
			Help: "Number of items in the per-city trending set",
		}, []string{"city"}),
	}
}

func (mc *MetricsCollector) RecordRecommendationRequest(latency time.Duration) {
	mc.recommendationRequests.Inc()
	mc.recommendationLatency.Observe(latency.Seconds())
}

func (mc *MetricsCollector) ObserveScoringDuration(d time.Duration) {
	mc.scoringDuration.Observe(d.Seconds())
}

func (mc *MetricsCollector) ObserveCascadeTier(tier string, count int) {
	mc.cascadeTierResults.WithLabelValues(tier).Add(float64(count))
}

func (mc *MetricsCollector) RecordCurationOutcome(source, outcome string) {
	mc.curationOutcomes.WithLabelValues(source, outcome).Inc()
}

func (mc *MetricsCollector) RecordInteractionPublished(interactionType string) {
	mc.interactionsPublished.WithLabelValues(interactionType).Inc()
}

func (mc *MetricsCollector) SetTrendingSetSize(city string, size int) {
	mc.trendingSetSize.WithLabelValues(city).Set(float64(size))
}
