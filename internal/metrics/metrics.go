// Package metrics defines the Prometheus instrumentation shared by the
// tool dispatch layer and the appliance client. Metrics are served on the
// admin HTTP endpoint in SSE mode.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "opendtu_mcp"

var (
	// ToolInvocations counts tool calls by tool name and envelope outcome
	// ("ok" or the error kind).
	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_invocations_total",
		Help:      "Tool invocations by tool name and outcome.",
	}, []string{"tool", "outcome"})

	// ApplianceRequestDuration observes the latency of HTTP requests to
	// the appliance, including the bounded read retry.
	ApplianceRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "appliance_request_duration_seconds",
		Help:      "Duration of HTTP requests to the OpenDTU appliance.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// ApplianceRequests counts appliance requests by path and result
	// ("ok", "rejected", "auth", "unreachable").
	ApplianceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appliance_requests_total",
		Help:      "HTTP requests to the OpenDTU appliance by result.",
	}, []string{"path", "result"})
)
