package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application's Prometheus metrics. One struct keeps
// registration in a single place and lets tests pass nil to skip recording.
type Metrics struct {
	SelectionsTotal      *prometheus.CounterVec
	DecisionsTotal       *prometheus.CounterVec
	TokenRejectionsTotal *prometheus.CounterVec
	AdvancementsTotal    prometheus.Counter
	CompletionsTotal     prometheus.Counter
	SyncPassesTotal      *prometheus.CounterVec
	SelectionDuration    prometheus.Histogram
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		SelectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renoflow_amo_selections_total",
			Help: "AMO selections by outcome (accepted, declined)",
		}, []string{"outcome"}),
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renoflow_amo_decisions_total",
			Help: "AMO decisions by resulting validation status",
		}, []string{"status"}),
		TokenRejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renoflow_amo_token_rejections_total",
			Help: "Validation token rejections by reason (not_found, expired, consumed)",
		}, []string{"reason"}),
		AdvancementsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "renoflow_journey_advancements_total",
			Help: "Journey step advancements",
		}),
		CompletionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "renoflow_journey_completions_total",
			Help: "Journeys that reached completion",
		}),
		SyncPassesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renoflow_case_sync_passes_total",
			Help: "Case-status synchronization passes by result (unchanged, updated, advanced, failed)",
		}, []string{"result"}),
		SelectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "renoflow_amo_selection_duration_seconds",
			Help:    "Latency of the AMO selection operation",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordSelection(outcome string) {
	if m == nil {
		return
	}
	m.SelectionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordDecision(status string) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordTokenRejection(reason string) {
	if m == nil {
		return
	}
	m.TokenRejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordAdvancement() {
	if m == nil {
		return
	}
	m.AdvancementsTotal.Inc()
}

func (m *Metrics) RecordCompletion() {
	if m == nil {
		return
	}
	m.CompletionsTotal.Inc()
}

func (m *Metrics) RecordSyncPass(result string) {
	if m == nil {
		return
	}
	m.SyncPassesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSelectionDuration(seconds float64) {
	if m == nil {
		return
	}
	m.SelectionDuration.Observe(seconds)
}
