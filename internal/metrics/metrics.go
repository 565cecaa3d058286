package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_turns_active",
		Help: "Orchestrator turns currently running",
	})

	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_turns_total",
		Help: "Turns processed by transport and outcome",
	}, []string{"transport", "status"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_turn_duration_seconds",
		Help:    "End-to-end orchestrator turn latency",
		Buckets: []float64{0.5, 1.0, 2.0, 3.0, 5.0, 8.0, 13.0, 21.0, 34.0},
	})

	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_tool_duration_seconds",
		Help:    "Domain agent call latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 3.0, 5.0, 10.0},
	}, []string{"tool"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage"})

	TraceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_trace_events_total",
		Help: "Trace events emitted by type",
	}, []string{"type"})

	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_sessions",
		Help: "Conversation sessions held in memory",
	})

	Tokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_estimated_tokens_total",
		Help: "Estimated tokens by direction",
	}, []string{"direction"})

	Rejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_turns_rejected_total",
		Help: "Turns refused because the gateway was at capacity",
	})
)
