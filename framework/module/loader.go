package module

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/hooks"
	"github.com/km-arc/go-kernel/framework/semver"
)

// Options configures where modules come from and what they are checked
// against.
type Options struct {
	// FrameworkVersion is matched against compatibility.framework.
	FrameworkVersion string
	// RuntimeVersion is matched against compatibility.runtime. Defaults to
	// the running Go version. When that is unknown (a development
	// toolchain) runtime constraints are not checked.
	RuntimeVersion string
	// Paths are walked for module.toml, module.yaml/yml and module.hcl.
	Paths []string
	// Manifests are compiled-in manifests, discovered before any path.
	Manifests []Manifest
	// Disabled names modules to leave out. Core modules cannot be disabled.
	Disabled []string
	// Verify runs container.Validate between registration and boot.
	Verify bool
}

// Observer receives lifecycle events, e.g. for metrics. Discovery is
// reported as a transition from Discovered to Discovered.
type Observer interface {
	ModuleTransition(module string, from, to State)
	BootstrapFinished(elapsed time.Duration, err error)
}

// Option customises a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithObserver adds an Observer.
func WithObserver(o Observer) Option {
	return func(l *Loader) { l.observers = append(l.observers, o) }
}

// Loader runs the module lifecycle against one container and hook registry.
//
//	loader := module.NewLoader(app, hookRegistry, module.Options{
//	    FrameworkVersion: "1.0.0",
//	    Paths:            []string{"app/modules"},
//	})
//	loader.Provide("greeter", greeter.New)
//	if err := loader.Bootstrap(); err != nil {
//	    log.Fatal().Err(err).Msg("bootstrap failed")
//	}
type Loader struct {
	app       *container.Container
	hooks     *hooks.Registry
	opts      Options
	log       zerolog.Logger
	observers []Observer

	mu       sync.RWMutex
	modules  []*Descriptor
	statuses map[string]Status
	running  bool
	booted   bool
}

// NewLoader creates a loader. Nothing is read until Plan or Bootstrap.
func NewLoader(app *container.Container, hookRegistry *hooks.Registry, opts Options, options ...Option) *Loader {
	if opts.RuntimeVersion == "" {
		opts.RuntimeVersion = semver.RuntimeVersion()
	}
	l := &Loader{
		app:      app,
		hooks:    hookRegistry,
		opts:     opts,
		log:      zerolog.Nop(),
		statuses: make(map[string]Status),
	}
	for _, o := range options {
		o(l)
	}
	return l
}

// Provide binds the implementation of a module as a singleton under
// ID(name). concrete is anything container.Bind accepts; constructor
// parameters are auto-wired.
func (l *Loader) Provide(name string, concrete any) {
	l.app.Singleton(ID(name), concrete)
}

// ── Plan ─────────────────────────────────────────────────────────────────────

// Plan discovers, validates and orders modules without touching the
// container. It returns the load order. Once bootstrapped, Plan returns the
// order that was booted and leaves every status alone.
func (l *Loader) Plan() ([]*Descriptor, error) {
	l.mu.RLock()
	running, booted := l.running, l.booted
	l.mu.RUnlock()
	switch {
	case booted:
		return l.Modules(), nil
	case running:
		return nil, errBootstrapping
	}
	return l.plan()
}

func (l *Loader) plan() ([]*Descriptor, error) {
	env, err := l.environment()
	if err != nil {
		return nil, err
	}

	ds, err := Discover(l.opts)
	if err != nil {
		l.log.Error().Err(err).Str("phase", "discovery").Msg("module discovery failed")
		return nil, err
	}

	l.mu.Lock()
	l.modules = ds
	l.statuses = make(map[string]Status, len(ds))
	for _, d := range ds {
		l.statuses[d.Name] = Status{State: Discovered}
	}
	l.mu.Unlock()
	for _, d := range ds {
		l.log.Debug().Str("module", d.Name).Str("version", d.Version).Str("source", d.Source).Msg("module discovered")
		l.notify(d.Name, Discovered, Discovered)
	}

	if err := Check(ds, env); err != nil {
		l.failAll(err)
		l.log.Error().Err(err).Str("phase", "validation").Msg("module validation failed")
		return nil, err
	}
	l.transitionAll(ds, Validated)

	ordered, err := Order(ds)
	if err != nil {
		l.failAll(err)
		l.log.Error().Err(err).Str("phase", "ordering").Msg("module ordering failed")
		return nil, err
	}

	l.mu.Lock()
	l.modules = ordered
	l.mu.Unlock()
	l.transitionAll(ordered, Ordered)
	return ordered, nil
}

func (l *Loader) environment() (Environment, error) {
	framework, err := semver.ParseVersion(l.opts.FrameworkVersion)
	if err != nil {
		return Environment{}, fmt.Errorf("module: framework version: %w", err)
	}
	env := Environment{Framework: framework}
	if l.opts.RuntimeVersion == "" {
		l.log.Warn().Msg("go toolchain version unknown, compatibility.runtime not checked")
		return env, nil
	}
	if env.Runtime, err = semver.ParseVersion(l.opts.RuntimeVersion); err != nil {
		return Environment{}, fmt.Errorf("module: runtime version: %w", err)
	}
	return env, nil
}

// ── Bootstrap ────────────────────────────────────────────────────────────────

// Bootstrap plans, then registers every module in order, then boots every
// module in the same order. The first failure aborts the whole bootstrap
// and marks every unfinished module Failed. On success the container and
// hook registry are sealed.
func (l *Loader) Bootstrap() error {
	start := time.Now()
	err := l.bootstrap()
	elapsed := time.Since(start)

	for _, o := range l.observers {
		o.BootstrapFinished(elapsed, err)
	}
	if err != nil {
		return err
	}
	l.log.Info().Int("modules", len(l.Modules())).Dur("elapsed", elapsed).Msg("modules booted")
	return nil
}

var (
	errBootstrapped  = errors.New("module: loader already bootstrapped")
	errBootstrapping = errors.New("module: bootstrap in progress")
)

func (l *Loader) bootstrap() error {
	l.mu.Lock()
	switch {
	case l.booted:
		l.mu.Unlock()
		return errBootstrapped
	case l.running:
		l.mu.Unlock()
		return errBootstrapping
	}
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	ordered, err := l.plan()
	if err != nil {
		return err
	}

	instances := make([]Module, len(ordered))
	for i, d := range ordered {
		l.transition(d.Name, Registering, nil)
		m, err := l.register(d)
		if err != nil {
			return l.abort(err)
		}
		instances[i] = m
		l.transition(d.Name, Registered, nil)
	}

	if l.opts.Verify {
		if err := l.app.Validate(); err != nil {
			return l.abort(fmt.Errorf("module: %s: %w", PhaseVerify, err))
		}
	}

	for i, d := range ordered {
		l.transition(d.Name, Booting, nil)
		if err := protect(func() error { return instances[i].Boot(l.app) }); err != nil {
			return l.abort(&PhaseError{Module: d.Name, Phase: PhaseBoot, Err: err})
		}
		l.transition(d.Name, Booted, nil)
	}

	l.app.Seal()
	l.hooks.Seal()
	l.mu.Lock()
	l.booted = true
	l.mu.Unlock()
	return nil
}

// register resolves a module implementation, subscribes its hooks and runs
// its Register callback between the module registration hooks.
func (l *Loader) register(d *Descriptor) (Module, error) {
	log := l.log.With().Str("module", d.Name).Logger()

	raw, err := l.app.Make(ID(d.Name))
	if err != nil {
		return nil, &PhaseError{Module: d.Name, Phase: PhaseResolve, Err: err}
	}
	m, ok := raw.(Module)
	if !ok {
		return nil, &PhaseError{Module: d.Name, Phase: PhaseResolve, Err: fmt.Errorf("%T does not implement module.Module", raw)}
	}

	if sub, ok := m.(HookSubscriber); ok {
		if err := protect(func() error { return sub.Hooks(l.hooks.For(d.Name)) }); err != nil {
			return nil, &PhaseError{Module: d.Name, Phase: PhaseHooks, Err: err}
		}
	}

	ctx := &hooks.Context{Module: d.Name, Container: l.app}
	if err := l.hooks.Trigger(hooks.BeforeModuleRegister, ctx); err != nil {
		return nil, &PhaseError{Module: d.Name, Phase: PhaseRegister, Err: err}
	}
	if err := protect(func() error { return m.Register(l.app) }); err != nil {
		return nil, &PhaseError{Module: d.Name, Phase: PhaseRegister, Err: err}
	}
	ctx = &hooks.Context{Module: d.Name, Container: l.app}
	if err := l.hooks.Trigger(hooks.AfterModuleRegister, ctx); err != nil {
		return nil, &PhaseError{Module: d.Name, Phase: PhaseRegister, Err: err}
	}

	log.Debug().Msg("module registered")
	return m, nil
}

func (l *Loader) abort(err error) error {
	l.failAll(err)
	var pe *PhaseError
	if errors.As(err, &pe) {
		l.log.Error().Err(pe.Err).Str("module", pe.Module).Str("phase", string(pe.Phase)).Msg("bootstrap aborted")
	} else {
		l.log.Error().Err(err).Msg("bootstrap aborted")
	}
	return err
}

// protect runs fn, turning a panic into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}

// ── State ────────────────────────────────────────────────────────────────────

// transition moves a module to a new state. Illegal transitions are
// programming errors and panic.
func (l *Loader) transition(name string, to State, reason error) {
	l.mu.Lock()
	from := l.statuses[name].State
	if !canTransition(from, to) {
		l.mu.Unlock()
		panic(fmt.Sprintf("module: illegal transition of %s from %s to %s", name, from, to))
	}
	l.statuses[name] = Status{State: to, Reason: reason}
	l.mu.Unlock()

	l.log.Debug().Str("module", name).Str("from", from.String()).Str("to", to.String()).Msg("module transition")
	l.notify(name, from, to)
}

func (l *Loader) transitionAll(ds []*Descriptor, to State) {
	for _, d := range ds {
		l.transition(d.Name, to, nil)
	}
}

// failAll marks every module that has not reached a terminal state Failed.
func (l *Loader) failAll(reason error) {
	for _, d := range l.Modules() {
		if st, _ := l.Status(d.Name); !st.State.Terminal() {
			l.transition(d.Name, Failed, reason)
		}
	}
}

func (l *Loader) notify(name string, from, to State) {
	for _, o := range l.observers {
		o.ModuleTransition(name, from, to)
	}
}

// Modules returns the known modules: in load order once ordering
// succeeded, in discovery order before that.
func (l *Loader) Modules() []*Descriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Descriptor, len(l.modules))
	copy(out, l.modules)
	return out
}

// Status returns the current status of a module.
func (l *Loader) Status(name string) (Status, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st, ok := l.statuses[name]
	return st, ok
}

// Statuses returns a snapshot of every module's status.
func (l *Loader) Statuses() map[string]Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]Status, len(l.statuses))
	for k, v := range l.statuses {
		out[k] = v
	}
	return out
}

// Booted reports whether Bootstrap completed successfully.
func (l *Loader) Booted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.booted
}
