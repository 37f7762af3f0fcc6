// Package metrics records outbound GitHub API calls in a private Prometheus
// registry that the CLI can dump to a node_exporter textfile.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	Registry *prometheus.Registry

	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

// New registers the collectors in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "githubapp_http_in_flight_requests",
			Help: "In-flight requests to the GitHub API.",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "githubapp_http_requests_total",
				Help: "Requests sent to the GitHub API.",
			},
			[]string{"code", "method"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "githubapp_http_request_duration_seconds",
				Help:    "GitHub API request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"code", "method"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "githubapp_token_exchanges_total",
				Help: "Installation token exchanges by outcome.",
			},
			[]string{"result"},
		),
	}
	m.Registry.MustRegister(m.inFlight, m.requests, m.duration, m.tokens)
	return m
}

// InstrumentRoundTripper wraps next with in-flight, count and latency collection.
func (m *Metrics) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperInFlight(m.inFlight,
		promhttp.InstrumentRoundTripperCounter(m.requests,
			promhttp.InstrumentRoundTripperDuration(m.duration, next)))
}

// TokenExchanged counts one exchange outcome.
func (m *Metrics) TokenExchanged(err error) {
	if err != nil {
		m.tokens.WithLabelValues("error").Inc()
		return
	}
	m.tokens.WithLabelValues("ok").Inc()
}

// WriteTextfile writes the registry in text exposition format, atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
