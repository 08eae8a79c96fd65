package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const JobName = "price_history"

// Metrics holds the counters of one process. Runs are short lived, so values are
// pushed to a Pushgateway instead of being scraped.
type Metrics struct {
	Registry     *prometheus.Registry
	Runs         *prometheus.CounterVec
	Offers       prometheus.Counter
	ShopsCreated prometheus.Counter
	Duration     prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_runs_total",
				Help: "Sampling runs by outcome",
			},
			[]string{"status"},
		),
		Offers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "price_offers_total",
				Help: "Offers stored as price facts",
			},
		),
		ShopsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "price_shops_created_total",
				Help: "Shops seen for the first time",
			},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "price_run_duration_seconds",
				Help:    "Wall time of a sampling run",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	m.Registry.MustRegister(m.Runs, m.Offers, m.ShopsCreated, m.Duration)
	return m
}

// ObserveRun records the outcome of one run.
func (m *Metrics) ObserveRun(err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.Runs.WithLabelValues(status).Inc()
	m.Duration.Observe(elapsed.Seconds())
}

// Push sends the registry to the Pushgateway at url, grouped by product.
func (m *Metrics) Push(ctx context.Context, url, product string) error {
	return push.New(url, JobName).
		Gatherer(m.Registry).
		Grouping("product", product).
		PushContext(ctx)
}
