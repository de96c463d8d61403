package agent

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "netagentd"

var (
	resyncsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "resyncs_completed_total",
		Help:      "Count of endpoint resyncs that reached completion, by outcome",
	}, []string{"outcome"})

	endpointsRegistered = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "endpoints_registered",
		Help:      "Current number of endpoints held in the registry",
	})

	requestQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "request_queue_depth",
		Help:      "Current depth of a REQ socket's backlog",
	}, []string{"socket"})

	socketReconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "socket_reconnects_total",
		Help:      "Count of socket reconnects triggered by a timeout",
	}, []string{"socket"})
)

// MustRegister registers agent metrics with registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(resyncsCompleted, endpointsRegistered, requestQueueDepth, socketReconnects)
}
