package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erlorenz/pubserve/metrics"
	"github.com/erlorenz/pubserve/observer"
)

func TestCollectorCountsPublisherActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector("test")
	require.NoError(t, c.Register(reg))

	p := observer.NewPublisher[int](
		observer.WithMetrics(c.For("jobs")),
		observer.WithPanicRecovery(),
	)
	ok := observer.NewHandle[int](observer.SubscriberFunc[int](func(*int) {}))
	p.Subscribe(ok)
	p.Subscribe(observer.NewHandle[int](observer.SubscriberFunc[int](func(*int) { panic("boom") })))
	p.Publish(1)
	p.Publish(2)
	p.Unsubscribe(ok)

	jobs := prometheus.Labels{"publisher": "jobs"}
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Subscribers.With(jobs)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Publishes.With(jobs)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Notifies.With(jobs)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Panics.With(jobs)))
}

func TestCollectorSeparatesPublishers(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector("test")
	require.NoError(t, c.Register(reg))

	a := observer.NewPublisher[string](observer.WithMetrics(c.For("a")))
	b := observer.NewPublisher[string](observer.WithMetrics(c.For("b")))
	a.Publish("x")
	a.Publish("y")
	b.Publish("z")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Publishes.With(prometheus.Labels{"publisher": "a"})))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Publishes.With(prometheus.Labels{"publisher": "b"})))
}

func TestCollectorRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector("test")
	require.NoError(t, c.Register(reg))

	err := c.Register(reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics: register collector")
}

func TestCollectorHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector("pubserve")
	require.NoError(t, c.Register(reg))

	p := observer.NewAsyncPublisher[int](observer.WithMetrics(c.For("events")))
	p.Subscribe(observer.NewAsyncHandle[int](nil))
	p.Publish(t.Context(), 1)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pubserve_publishes_total{publisher="events"} 1`)
}
