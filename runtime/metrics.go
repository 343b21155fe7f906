package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proofer_requests_issued_total",
		Help: "Upstream requests issued, by kind.",
	}, []string{"kind"})
	requestsRetried = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proofer_requests_retried_total",
		Help: "Upstream requests retried on another node, by kind.",
	}, []string{"kind"})
	requestsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proofer_requests_failed_total",
		Help: "Upstream requests that failed transport, by kind.",
	}, []string{"kind"})
)
