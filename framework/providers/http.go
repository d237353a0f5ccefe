// Package providers holds the framework's core modules. Their manifests are
// compiled in, so application manifests can always require them.
package providers

import (
	"net/http"

	"github.com/km-arc/go-kernel/framework/config"
	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/metrics"
	"github.com/km-arc/go-kernel/framework/module"
	"github.com/km-arc/go-kernel/framework/routing"
)

// HTTPManifest describes the routing module. It provides the "http"
// capability at the framework version.
var HTTPManifest = module.Manifest{
	Name:        "http",
	Version:     "1.0.0",
	Description: "HTTP routing and request lifecycle hooks",
	Core:        true,
	Provides:    []module.Provision{{Capability: "http", Version: "1.0.0"}},
}

// ── HTTPModule ────────────────────────────────────────────────────────────────

// HTTPModule registers the router and the request boundary.
//
// Bound abstracts:
//   - "router"                  → *routing.Router
//   - routing.Lifecycle key     → *routing.Lifecycle
//   - routing.RequestObserver   → *metrics.Metrics (when metrics are enabled)
//
// Laravel equivalent:
//
//	// Illuminate\Routing\RoutingServiceProvider
//	$app->singleton('router', fn($app) => new Router($app['events'], $app));
type HTTPModule struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	loader  *module.Loader
}

// NewHTTPModule is resolved by the container; every parameter is auto-wired.
func NewHTTPModule(cfg *config.Config, m *metrics.Metrics, loader *module.Loader) *HTTPModule {
	return &HTTPModule{cfg: cfg, metrics: m, loader: loader}
}

func (p *HTTPModule) Register(app *container.Container) error {
	if p.cfg.Metrics.Enabled {
		app.Instance(container.Key[routing.RequestObserver](), p.metrics)
	}
	app.Singleton(container.Key[*routing.Lifecycle](), container.Ctor(routing.NewLifecycle,
		container.Arg("hooks"),
		container.Arg("app"),
		container.Arg("log"),
		container.Arg("observer").Default(nil),
	))
	app.Singleton("router", container.Ctor(newRouter))
	app.Alias("router", container.Key[*routing.Router]())
	return nil
}

func newRouter(lc *routing.Lifecycle, cfg *config.Config) *routing.Router {
	return routing.New(lc.Debug(cfg.App.Debug).Middleware)
}

// Boot mounts the framework routes: /health, /_modules and the metrics
// endpoint.
func (p *HTTPModule) Boot(app *container.Container) error {
	router, err := container.Resolve[*routing.Router](app, "router")
	if err != nil {
		return err
	}

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		gohttp.NewResponse(w).Success(map[string]any{"status": "ok"})
	})
	router.Get("/_modules", p.modules)
	if p.cfg.Metrics.Enabled {
		router.Handle(p.cfg.Metrics.Path, p.metrics.Handler())
	}
	return nil
}

type moduleView struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// modules lists every module in load order with its lifecycle state.
func (p *HTTPModule) modules(w http.ResponseWriter, _ *http.Request) {
	statuses := p.loader.Statuses()
	out := make([]moduleView, 0, len(statuses))
	for _, d := range p.loader.Modules() {
		out = append(out, moduleView{Name: d.Name, Version: d.Version, Status: statuses[d.Name].String()})
	}
	gohttp.NewResponse(w).Success(out)
}
