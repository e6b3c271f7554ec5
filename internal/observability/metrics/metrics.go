// Package metrics exposes Prometheus collectors for the concierge
// pipeline. Collectors are registered on the default registry and
// served by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "concierge"

var (
	// EvaluationsTotal counts confidence evaluations by method.
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confidence_evaluations_total",
		Help:      "Confidence evaluations performed, by evaluation method.",
	}, []string{"method"})

	// EscalationsTotal counts escalation attempts by outcome.
	EscalationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "escalations_total",
		Help:      "Escalation attempts, by outcome (escalated, failed).",
	}, []string{"outcome"})

	// JudgeLatency observes LLM judge round-trip time.
	JudgeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "judge_latency_seconds",
		Help:      "Latency of LLM judge calls.",
		Buckets:   prometheus.DefBuckets,
	})

	// MessagesTotal counts inbound guest messages by hotel.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inbound_messages_total",
		Help:      "Inbound guest messages processed, by hotel.",
	}, []string{"hotel_id"})

	// ActiveSessions tracks sessions currently held in the store.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions currently tracked by the session store.",
	})
)
