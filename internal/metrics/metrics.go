// Package metrics exposes the oracle's Prometheus series. The promauto
// registration style and the trust-score gauge are grounded on
// raza791-agent-identity-management's internal/infrastructure/metrics
// package; that repo also informed splitting counters and gauges by
// concern (HTTP, trust score, operations) rather than one flat namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrustScoreGauge mirrors the last computed score per agent, the same
	// role raza791's trustScoreGauge plays for its own agents.
	TrustScoreGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trust_oracle_agent_score",
			Help: "Most recently computed trust score for an agent.",
		},
		[]string{"agent_id"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trust_oracle_indexer_cycle_duration_seconds",
			Help:    "Duration of a single indexer cycle.",
			Buckets: prometheus.DefBuckets,
		},
	)

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_oracle_indexer_cycles_total",
			Help: "Indexer cycles run, partitioned by outcome (committed, failed).",
		},
		[]string{"outcome"},
	)

	AgentsScoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trust_oracle_agents_scored_total",
			Help: "Agents scored across all cycles, whether or not their batch was submitted.",
		},
	)

	OverflowedAgentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trust_oracle_indexer_overflowed_agents_total",
			Help: "Dirty agents deferred past maxBatchSize into a cycle's pendingAgentIds.",
		},
	)

	// EventSynonymOverlapTotal counts cycles in which both FeedbackPosted
	// and NewFeedback were observed, per spec.md Design Notes §9's open
	// question on event synonym semantics.
	EventSynonymOverlapTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reputation_oracle_event_synonym_overlap_total",
			Help: "Cycles in which both FeedbackPosted and NewFeedback were observed.",
		},
	)

	RPCRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_oracle_rpc_retries_total",
			Help: "Failed RPC attempts seen inside the backoff harness; only transient ones are retried.",
		},
		[]string{"operation"},
	)

	FallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_oracle_fallback_total",
			Help: "Trust client source attempts, partitioned by source and fallback code.",
		},
		[]string{"source", "fallback_code"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trust_oracle_query_duration_seconds",
			Help:    "End-to-end duration of a resolved trust query.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "status"},
	)
)

// RecordCycle records a completed indexer cycle's duration and outcome.
func RecordCycle(seconds float64, succeeded bool) {
	CycleDuration.Observe(seconds)
	outcome := "committed"
	if !succeeded {
		outcome = "failed"
	}
	CyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordOverflow counts agents deferred past maxBatchSize in one cycle.
func RecordOverflow(count int) {
	if count <= 0 {
		return
	}
	OverflowedAgentsTotal.Add(float64(count))
}

// RecordEventSynonymOverlap counts one cycle in which both FeedbackPosted
// and NewFeedback were observed for the same registry.
func RecordEventSynonymOverlap() {
	EventSynonymOverlapTotal.Inc()
}

// RecordScore updates the gauge for agentID and counts one more agent scored.
func RecordScore(agentID string, score float64) {
	TrustScoreGauge.WithLabelValues(agentID).Set(score)
	AgentsScoredTotal.Inc()
}

// RecordRPCRetry counts one failed attempt of the named operation inside the
// backoff harness. Callers record every failed attempt, transient or not; the
// harness retries only the transient ones.
func RecordRPCRetry(operation string) {
	RPCRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordFallback counts one source attempt, empty fallbackCode meaning the
// source answered without falling back further.
func RecordFallback(source, fallbackCode string) {
	FallbackTotal.WithLabelValues(source, fallbackCode).Inc()
}

// RecordQuery observes a resolved query's end-to-end latency.
func RecordQuery(source, status string, seconds float64) {
	QueryDuration.WithLabelValues(source, status).Observe(seconds)
}
