package autoposter

import (
	"errors"

	"github.com/google/uuid"
	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "topgg_autoposter"

// Post outcome label values
const (
	outcomeSuccess     = "success"
	outcomeRateLimited = "rate_limited"
	outcomeError       = "error"
)

type metrics struct {
	posts         *prometheus.CounterVec
	serverCount   prometheus.Gauge
	lastSuccess   prometheus.Gauge
	postDuration  prometheus.Histogram
	droppedResult prometheus.Counter
}

// newMetrics creates the autoposter's collectors and registers them with reg.
// A nil reg leaves them unregistered. Each autoposter labels its series with
// its own ID so several can share a registry.
func newMetrics(reg prometheus.Registerer, id uuid.UUID) *metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"autoposter": id.String()}

	return &metrics{
		posts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Name:        "posts_total",
				Help:        "Total number of stats posts attempted, by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"}, // outcome: success, rate_limited, error
		),
		serverCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   metricsNamespace,
				Name:        "server_count",
				Help:        "Server count sent in the most recent post",
				ConstLabels: labels,
			},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   metricsNamespace,
				Name:        "last_success_timestamp_seconds",
				Help:        "Unix time of the most recent successful post",
				ConstLabels: labels,
			},
		),
		postDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   metricsNamespace,
				Name:        "post_duration_seconds",
				Help:        "Latency of stats posts",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
		),
		droppedResult: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Name:        "dropped_results_total",
				Help:        "Post outcomes discarded because nobody drained the result channel",
				ConstLabels: labels,
			},
		),
	}
}

func (m *metrics) observe(r Result, seconds float64) {
	m.serverCount.Set(float64(r.Stats.ServerCount))
	m.postDuration.Observe(seconds)
	m.posts.WithLabelValues(outcomeOf(r.Err)).Inc()
	if r.Err == nil {
		m.lastSuccess.Set(float64(r.At.Unix()))
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	var rl *pkgerrs.RateLimitError
	if errors.As(err, &rl) {
		return outcomeRateLimited
	}
	return outcomeError
}
