// Package metrics exposes Prometheus metrics for the token lifecycle and the
// HTTP gateway.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/hooks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	tokenEvents  *prometheus.CounterVec
	authorized   prometheus.Gauge
	httpRequests *prometheus.CounterVec
}

// New creates the collectors and registers them with Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tokenEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isbridge_token_events_total",
			Help: "Token lifecycle transitions by kind",
		}, []string{"kind"}),
		authorized: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "isbridge_authorized",
			Help: "1 when a usable Infusionsoft token is stored",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isbridge_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.tokenEvents,
		m.authorized,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Subscribe records every auth.Lifecycle event emitted on bus.
func (m *Metrics) Subscribe(bus *hooks.Bus) {
	hooks.On(bus, auth.Lifecycle, func(_ context.Context, ev auth.LifecycleEvent) error {
		m.tokenEvents.WithLabelValues(string(ev.Kind)).Inc()
		m.SetAuthorized(ev.Authorized)
		return nil
	}, hooks.WithPriority(100))
}

// SetAuthorized sets the authorized gauge.
func (m *Metrics) SetAuthorized(ok bool) {
	if ok {
		m.authorized.Set(1)
	} else {
		m.authorized.Set(0)
	}
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
