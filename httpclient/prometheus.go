package httpclient

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusObserver exports call outcomes as Prometheus metrics.
//
// Example:
//
//	obs := httpclient.NewPrometheusObserver(prometheus.DefaultRegisterer)
//	client := httpclient.New(httpclient.WithObserver(obs))
type PrometheusObserver struct {
	CallsTotal    *prometheus.CounterVec
	CallDuration  *prometheus.HistogramVec
	ResponseBytes *prometheus.CounterVec
}

// NewPrometheusObserver creates the collectors and registers them with reg.
// It panics if they are already registered, like promauto.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	factory := promauto.With(reg)

	return &PrometheusObserver{
		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "netrequest",
				Name:      "calls_total",
				Help:      "Total number of client calls by operation, outcome and status code",
			},
			[]string{"operation", "outcome", "status"},
		),
		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "netrequest",
				Name:      "call_duration_seconds",
				Help:      "Client call latency from validation to outcome",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~41s
			},
			[]string{"operation"},
		),
		ResponseBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "netrequest",
				Name:      "response_bytes_total",
				Help:      "Bytes returned to callers on success",
			},
			[]string{"operation"},
		),
	}
}

// ObserveCall implements Observer.
func (p *PrometheusObserver) ObserveCall(r CallRecord) {
	status := ""
	if r.StatusCode != 0 {
		status = strconv.Itoa(r.StatusCode)
	}

	p.CallsTotal.WithLabelValues(r.Op, r.Outcome(), status).Inc()
	p.CallDuration.WithLabelValues(r.Op).Observe(r.Duration.Seconds())
	if r.Kind == 0 {
		p.ResponseBytes.WithLabelValues(r.Op).Add(float64(r.Bytes))
	}
}
