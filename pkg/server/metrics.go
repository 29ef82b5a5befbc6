package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics live on a private registry so several servers (tests, the try
// command) never collide on the default one.
type metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	suggestions *prometheus.HistogramVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		// requests counts handled requests by op and outcome.
		// Labels: op, status (ok, error)
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "symbolserve",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total requests by op and status",
		}, []string{"op", "status"}),
		// latency measures request handling time.
		// Labels: op
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "symbolserve",
			Subsystem: "server",
			Name:      "latency_seconds",
			Help:      "Request handling latency",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"op"}),
		// suggestions tracks how many suggestions each engine returns.
		// Labels: engine
		suggestions: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "symbolserve",
			Subsystem: "server",
			Name:      "suggestions",
			Help:      "Suggestions returned per completion request",
			Buckets:   []float64{0, 1, 5, 10, 20, 40, 64},
		}, []string{"engine"}),
	}
}

func (m *metrics) observe(op, status string, seconds float64) {
	m.requests.WithLabelValues(op, status).Inc()
	m.latency.WithLabelValues(op).Observe(seconds)
}

// requestCounts flattens requests_total into "op/status" keys.
func (m *metrics) requestCounts() map[string]float64 {
	out := make(map[string]float64)
	families, err := m.registry.Gather()
	if err != nil {
		return out
	}
	for _, mf := range families {
		if mf.GetName() != "symbolserve_server_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var op, status string
			for _, lp := range metric.GetLabel() {
				switch lp.GetName() {
				case "op":
					op = lp.GetValue()
				case "status":
					status = lp.GetValue()
				}
			}
			out[op+"/"+status] = metric.GetCounter().GetValue()
		}
	}
	return out
}
