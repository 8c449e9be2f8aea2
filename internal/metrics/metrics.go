package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcc_stream_events_total",
		Help: "Events delivered to stream consumers grouped by kind",
	}, []string{"kind"})

	streamDiscards = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcc_stream_lines_discarded_total",
		Help: "Stream lines dropped by the decoder grouped by reason",
	}, []string{"reason"})

	streamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcc_stream_failures_total",
		Help: "Streams terminated by a transport failure grouped by phase",
	}, []string{"phase"})

	gatewayStreams = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcc_gateway_streams_total",
		Help: "Copilot streams served by the gateway grouped by responder and outcome",
	}, []string{"responder", "status"})

	gatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dcc_gateway_stream_duration_seconds",
		Help:    "Duration of copilot streams served by the gateway",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"responder"})
)

func ObserveEvent(kind string) {
	streamEvents.WithLabelValues(kind).Inc()
}

func ObserveDiscard(reason string) {
	streamDiscards.WithLabelValues(reason).Inc()
}

// ObserveFailure records a terminal transport failure. Phase is "connect"
// when no byte of the body was read, "read" otherwise.
func ObserveFailure(phase string) {
	streamFailures.WithLabelValues(phase).Inc()
}

// ObserveGatewayStream records the outcome of one served stream.
func ObserveGatewayStream(responder, status string, duration time.Duration) {
	if responder == "" {
		responder = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	gatewayStreams.WithLabelValues(responder, status).Inc()
	gatewayDuration.WithLabelValues(responder).Observe(duration.Seconds())
}
