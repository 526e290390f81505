package client

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes counters for the session protocol. All methods are
// nil-safe so instrumentation stays optional.
type Metrics struct {
	requestsTotal *prometheus.CounterVec
	retriesTotal  prometheus.Counter
	refreshTotal  *prometheus.CounterVec
}

// NewMetrics registers the client metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roost_client_requests_total",
				Help: "Total number of API requests by method and status.",
			},
			[]string{"method", "status"},
		),
		retriesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "roost_client_retries_total",
				Help: "Requests replayed after a successful token refresh.",
			},
		),
		refreshTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roost_client_refresh_total",
				Help: "Token refresh attempts by result.",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) observeRequest(method string, status int) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

func (m *Metrics) observeRefresh(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.refreshTotal.WithLabelValues(result).Inc()
}
