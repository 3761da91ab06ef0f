// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the proxy.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

const (
	ModeBuffered  = "buffered"
	ModeStreaming = "streaming"
)

var (
	// RequestsTotal counts inbound HTTP requests by method, route and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nim_proxy_requests_total",
			Help: "Total inbound requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records inbound request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nim_proxy_request_duration_seconds",
			Help:    "Inbound request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// UpstreamRequestsTotal counts upstream calls by mode and outcome. The
	// outcome is the upstream status class or the failure kind.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nim_proxy_upstream_requests_total",
			Help: "Upstream requests",
		},
		[]string{"mode", "outcome"},
	)

	// UpstreamLatency records time until the upstream response (buffered) or
	// its headers (streaming) arrived.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nim_proxy_upstream_latency_seconds",
			Help:    "Upstream latency",
			Buckets: LLMBuckets,
		},
		[]string{"mode"},
	)

	// StreamingConnections tracks open upstream streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nim_proxy_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// StreamFramesTotal counts SSE frames relayed to callers.
	StreamFramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nim_proxy_stream_frames_total",
			Help: "Relayed stream frames",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		UpstreamRequestsTotal,
		UpstreamLatency,
		StreamingConnections,
		StreamFramesTotal,
	)
}

// StatusClass turns an HTTP status code into a label like "2xx".
func StatusClass(status int) string {
	switch {
	case status >= 100 && status < 600:
		return strconv.Itoa(status/100) + "xx"
	default:
		return "unknown"
	}
}
