// Package metrics exports publisher activity to Prometheus.
//
//	c := metrics.NewCollector("app")
//	if err := c.Register(prometheus.DefaultRegisterer); err != nil {
//		return err
//	}
//	p := observer.NewPublisher[Event](observer.WithMetrics(c.For("events")))
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erlorenz/pubserve/observer"
)

const labelPublisher = "publisher"

// Collector holds the metric vectors shared by all publishers of a
// program. Each publisher gets its own label value through For.
type Collector struct {
	gatherer prometheus.Gatherer

	Subscribers   *prometheus.GaugeVec
	Publishes     *prometheus.CounterVec
	Notifies      *prometheus.CounterVec
	Panics        *prometheus.CounterVec
	NotifyLatency *prometheus.HistogramVec
}

// NewCollector creates the metric vectors under namespace. Nothing is
// registered until Register is called.
func NewCollector(namespace string) *Collector {
	labels := []string{labelPublisher}
	return &Collector{
		Subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "subscribers", Help: "Number of registered subscriber handles",
		}, labels),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "publishes_total", Help: "Total publish calls",
		}, labels),
		Notifies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_total", Help: "Total completed subscriber notifications",
		}, labels),
		Panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "subscriber_panics_total", Help: "Total panics recovered from subscribers",
		}, labels),
		NotifyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_duration_seconds",
			Help:      "Time spent in a single subscriber notification",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, labels),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.Subscribers, c.Publishes, c.Notifies, c.Panics, c.NotifyLatency}
}

// Register adds the vectors to reg. If reg is also a Gatherer it is used by
// Handler.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range c.collectors() {
		if err := reg.Register(col); err != nil {
			return fmt.Errorf("metrics: register collector: %w", err)
		}
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	return nil
}

// Handler serves the registry the collector was registered with, or the
// default gatherer.
func (c *Collector) Handler() http.Handler {
	if c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// For returns the observer.Metrics of the publisher called name.
func (c *Collector) For(name string) observer.Metrics {
	l := prometheus.Labels{labelPublisher: name}
	return &publisherMetrics{
		subscribers: c.Subscribers.With(l),
		publishes:   c.Publishes.With(l),
		notifies:    c.Notifies.With(l),
		panics:      c.Panics.With(l),
		latency:     c.NotifyLatency.With(l),
	}
}

type publisherMetrics struct {
	subscribers prometheus.Gauge
	publishes   prometheus.Counter
	notifies    prometheus.Counter
	panics      prometheus.Counter
	latency     prometheus.Observer
}

func (m *publisherMetrics) Subscribers(n int) { m.subscribers.Set(float64(n)) }

func (m *publisherMetrics) Published(int) { m.publishes.Inc() }

func (m *publisherMetrics) Notified(elapsed time.Duration) {
	m.notifies.Inc()
	m.latency.Observe(elapsed.Seconds())
}

func (m *publisherMetrics) Panicked() { m.panics.Inc() }
