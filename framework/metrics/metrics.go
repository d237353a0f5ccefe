// Package metrics exposes Prometheus instrumentation for the container, the
// module loader, the hook registry and the HTTP boundary.
//
// Collectors live on a registry owned by the application, so several
// applications (and tests) never collide on the global default registry.
//
//	m := metrics.New("gokernel")
//	m.Instrument(app, hookRegistry)
//	loader := module.NewLoader(app, hookRegistry, opts, module.WithObserver(m))
//	router.Get("/metrics", m.Handler().ServeHTTP)
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/hooks"
	"github.com/km-arc/go-kernel/framework/module"
)

// Metrics holds every collector. It implements module.Observer.
type Metrics struct {
	registry *prometheus.Registry

	builds      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	modules     *prometheus.GaugeVec
	bootstrap   *prometheus.HistogramVec
	hookRuns    *prometheus.CounterVec
	handlers    *prometheus.CounterVec
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

var _ module.Observer = (*Metrics)(nil)

// New creates the collectors under namespace and registers them, together
// with the Go runtime and process collectors, on a fresh registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "container",
				Name:      "builds_total",
				Help:      "Instances built by the service container.",
			},
			[]string{"abstract"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "module",
				Name:      "transitions_total",
				Help:      "Module lifecycle state transitions.",
			},
			[]string{"module", "state"},
		),
		modules: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "module",
				Name:      "state",
				Help:      "1 for the current lifecycle state of each module.",
			},
			[]string{"module", "state"},
		),
		bootstrap: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "module",
				Name:      "bootstrap_duration_seconds",
				Help:      "Duration of module bootstrap.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		hookRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hooks",
				Name:      "triggers_total",
				Help:      "Hook dispatches.",
			},
			[]string{"hook", "outcome"},
		),
		handlers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hooks",
				Name:      "handlers_total",
				Help:      "Hook handlers run.",
			},
			[]string{"hook"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	m.registry.MustRegister(
		m.builds, m.transitions, m.modules, m.bootstrap,
		m.hookRuns, m.handlers, m.requests, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument subscribes to container builds and hook dispatches. It must run
// before either is sealed.
func (m *Metrics) Instrument(app *container.Container, reg *hooks.Registry) {
	app.AfterResolving(func(abstract string, _ any) {
		m.builds.WithLabelValues(abstract).Inc()
	})
	reg.OnTrigger(m.ObserveHook)
}

// ── module.Observer ───────────────────────────────────────────────────────────

func (m *Metrics) ModuleTransition(name string, from, to module.State) {
	m.transitions.WithLabelValues(name, to.String()).Inc()
	if from != to {
		m.modules.WithLabelValues(name, from.String()).Set(0)
	}
	m.modules.WithLabelValues(name, to.String()).Set(1)
}

func (m *Metrics) BootstrapFinished(elapsed time.Duration, err error) {
	m.bootstrap.WithLabelValues(outcome(err)).Observe(elapsed.Seconds())
}

// ── Recorders ─────────────────────────────────────────────────────────────────

// ObserveHook records one Trigger call.
func (m *Metrics) ObserveHook(name hooks.Name, handled int, err error) {
	m.hookRuns.WithLabelValues(string(name), outcome(err)).Inc()
	m.handlers.WithLabelValues(string(name)).Add(float64(handled))
}

// ObserveRequest records one HTTP request. route should be the route pattern,
// not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	label := strconv.Itoa(status)
	m.requests.WithLabelValues(method, route, label).Inc()
	m.duration.WithLabelValues(method, route, label).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
