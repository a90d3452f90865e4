package visualization

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nvandessel/wirelogic/internal/simulation"
)

// Metrics holds the live server's Prometheus collectors. Each Metrics owns
// its registry so several servers can run in one process.
type Metrics struct {
	registry *prometheus.Registry

	steps        prometheus.Counter
	ticks        prometheus.Counter
	changed      prometheus.Counter
	powered      prometheus.Gauge
	interactions *prometheus.CounterVec
	reloads      *prometheus.CounterVec
	clients      prometheus.Gauge
}

// NewMetrics registers the simulator collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wirelogic",
			Name:      "steps_total",
			Help:      "Propagation steps run by the live server.",
		}),
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wirelogic",
			Name:      "ticks_total",
			Help:      "Steps on which the logic clock ticked.",
		}),
		changed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wirelogic",
			Name:      "socket_changes_total",
			Help:      "Socket power flips across all steps.",
		}),
		powered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "wirelogic",
			Name:      "powered_sockets",
			Help:      "Powered sockets after the latest step.",
		}),
		interactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wirelogic",
			Name:      "interactions_total",
			Help:      "Part interactions received over HTTP.",
		}, []string{"result"}),
		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wirelogic",
			Name:      "reloads_total",
			Help:      "Topology file reloads.",
		}, []string{"result"}),
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "wirelogic",
			Name:      "stream_clients",
			Help:      "Connected websocket state streams.",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) observeStep(r simulation.StepReport) {
	m.steps.Inc()
	if r.Ticked {
		m.ticks.Inc()
	}
	m.changed.Add(float64(r.Changed))
	m.powered.Set(float64(r.Powered))
}

func (m *Metrics) observeInteraction(err error) {
	m.interactions.WithLabelValues(result(err)).Inc()
}

// ObserveReload counts a topology reload attempt.
func (m *Metrics) ObserveReload(err error) {
	m.reloads.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
