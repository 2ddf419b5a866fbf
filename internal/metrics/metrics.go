// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HandlerRequests counts JSON handler invocations by handler and outcome.
	HandlerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ams",
		Name:      "handler_requests_total",
		Help:      "Block JSON handler invocations.",
	}, []string{"handler", "result"})

	// UpstreamRequests counts Media Services REST calls by operation and HTTP status ("error" on transport failure).
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ams",
		Name:      "upstream_requests_total",
		Help:      "Azure Media Services REST calls.",
	}, []string{"operation", "code"})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ams",
		Name:      "identity_token_refreshes_total",
		Help:      "Azure AD token fetches.",
	}, []string{"result"})

	TranscriptFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ams",
		Name:      "transcript_fetches_total",
		Help:      "Transcript proxy fetches by outcome (success, transport, parse).",
	}, []string{"result"})

	ViewsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ams",
		Name:      "views_rendered_total",
		Help:      "Rendered block views.",
	}, []string{"view"})
)
