// Package app is the application kernel. It owns the container, the hook
// registry, metrics and the module loader, the way Laravel's
// bootstrap/app.php owns $app.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-kernel/framework/config"
	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/hooks"
	"github.com/km-arc/go-kernel/framework/metrics"
	"github.com/km-arc/go-kernel/framework/module"
	"github.com/km-arc/go-kernel/framework/providers"
	"github.com/km-arc/go-kernel/framework/routing"
)

// Version is the framework version modules declare compatibility with.
const Version = "1.0.0"

// Application is the top-level application container.
// It embeds the IoC Container so user code can call app.Bind(),
// app.Singleton(), app.Make() directly, like $app in Laravel.
type Application struct {
	*container.Container
	Config  *config.Config
	Log     *zerolog.Logger
	Hooks   *hooks.Registry
	Metrics *metrics.Metrics
	Loader  *module.Loader
}

type settings struct {
	manifests []module.Manifest
	runtime   string
}

// Option customises New.
type Option func(*settings)

// WithManifests adds compiled-in module manifests, discovered before any
// manifest on disk.
func WithManifests(ms ...module.Manifest) Option {
	return func(s *settings) { s.manifests = append(s.manifests, ms...) }
}

// WithRuntimeVersion overrides the Go version compatibility.runtime
// constraints are checked against.
func WithRuntimeVersion(v string) Option {
	return func(s *settings) { s.runtime = v }
}

// New wires the core services. Nothing is discovered until Bootstrap.
//
// Core bindings, each also reachable by its type key so constructors can
// declare them as parameters:
//   - "container" → *container.Container
//   - "config"    → *config.Config
//   - "log"       → *zerolog.Logger
//   - "hooks"     → *hooks.Registry
//   - "metrics"   → *metrics.Metrics
//   - "modules"   → *module.Loader
func New(cfg *config.Config, log zerolog.Logger, options ...Option) *Application {
	s := &settings{manifests: []module.Manifest{providers.HTTPManifest}}
	for _, o := range options {
		o(s)
	}

	c := container.New()
	reg := hooks.New()
	m := metrics.New("gokernel")
	m.Instrument(c, reg)

	loader := module.NewLoader(c, reg, module.Options{
		FrameworkVersion: Version,
		RuntimeVersion:   s.runtime,
		Paths:            cfg.Modules.Paths,
		Manifests:        s.manifests,
		Disabled:         cfg.Modules.Disabled,
		Verify:           cfg.Modules.Verify,
	}, module.WithLogger(log), module.WithObserver(m))

	a := &Application{
		Container: c,
		Config:    cfg,
		Log:       &log,
		Hooks:     reg,
		Metrics:   m,
		Loader:    loader,
	}

	c.Alias("container", container.Key[*container.Container]())
	a.core("config", cfg, container.Key[*config.Config]())
	a.core("log", a.Log, container.Key[*zerolog.Logger]())
	a.core("hooks", reg, container.Key[*hooks.Registry]())
	a.core("metrics", m, container.Key[*metrics.Metrics]())
	a.core("modules", loader, container.Key[*module.Loader]())

	a.Provide("http", providers.NewHTTPModule)
	return a
}

func (a *Application) core(id string, instance any, key string) {
	a.Instance(id, instance)
	a.Alias(id, key)
}

// Provide registers the implementation of the module named in a manifest.
//
//	application.Provide("greeter", greeter.New)
func (a *Application) Provide(name string, concrete any) {
	a.Loader.Provide(name, concrete)
}

// Bootstrap discovers, validates, orders, registers and boots every module.
// Any error is fatal; the application must not serve afterwards.
func (a *Application) Bootstrap() error {
	return a.Loader.Bootstrap()
}

// Router resolves the router bound by the http module.
func (a *Application) Router() (*routing.Router, error) {
	return container.Resolve[*routing.Router](a.Container, "router")
}

// Run bootstraps the application (if needed) and serves HTTP on APP_PORT
// until ctx is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	if !a.Loader.Booted() {
		if err := a.Bootstrap(); err != nil {
			return err
		}
	}
	router, err := a.Router()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	a.Log.Info().
		Str("app", a.Config.App.Name).
		Str("env", a.Config.App.Env).
		Str("addr", srv.Addr).
		Msg("server started")

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Log.Info().Msg("server shutting down")
	return srv.Shutdown(shutdown)
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
func (a *Application) Version() string     { return Version }
