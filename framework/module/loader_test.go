package module_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/hooks"
	"github.com/km-arc/go-kernel/framework/module"
)

// ── fixtures ─────────────────────────────────────────────────────────────────

// recorder is a module that logs its lifecycle calls into a shared journal.
type recorder struct {
	name       string
	journal    *[]string
	onRegister func(app *container.Container) error
	onBoot     func(app *container.Container) error
}

func (r *recorder) Register(app *container.Container) error {
	*r.journal = append(*r.journal, "register:"+r.name)
	if r.onRegister != nil {
		return r.onRegister(app)
	}
	return nil
}

func (r *recorder) Boot(app *container.Container) error {
	*r.journal = append(*r.journal, "boot:"+r.name)
	if r.onBoot != nil {
		return r.onBoot(app)
	}
	return nil
}

// subscriber also attaches a Self-scoped hook.
type subscriber struct {
	*recorder
}

func (s subscriber) Hooks(r *hooks.Registrar) error {
	return r.Register(hooks.BeforeModuleRegister, hooks.Self, func(ctx *hooks.Context) error {
		*s.journal = append(*s.journal, "self-hook:"+ctx.Module)
		return nil
	})
}

type greeting struct{ text string }

type injected struct {
	module.BaseModule
	greeting *greeting
}

func newInjected(g *greeting) *injected { return &injected{greeting: g} }

func (m *injected) Register(*container.Container) error { return nil }

type transitions struct {
	seen     []string
	finished int
	lastErr  error
}

func (o *transitions) ModuleTransition(name string, _, to module.State) {
	o.seen = append(o.seen, name+":"+to.String())
}

func (o *transitions) BootstrapFinished(_ time.Duration, err error) {
	o.finished++
	o.lastErr = err
}

type fixture struct {
	app     *container.Container
	hooks   *hooks.Registry
	loader  *module.Loader
	journal []string
}

func newFixture(t *testing.T, opts module.Options, stubs ...stub) *fixture {
	t.Helper()
	f := &fixture{app: container.New(), hooks: hooks.New()}
	opts.FrameworkVersion = "1.0.0"
	opts.RuntimeVersion = "1.23.0"
	for _, s := range stubs {
		opts.Manifests = append(opts.Manifests, manifest(s))
	}
	f.loader = module.NewLoader(f.app, f.hooks, opts)
	return f
}

func (f *fixture) provide(name string) *recorder {
	r := &recorder{name: name, journal: &f.journal}
	f.loader.Provide(name, container.Value(r))
	return r
}

// ── Bootstrap ────────────────────────────────────────────────────────────────

func TestBootstrap_RegisterAllThenBootAll(t *testing.T) {
	f := newFixture(t, module.Options{},
		stub{name: "greeter", order: 20, requires: map[string]string{"cache": ">=1.0.0"}},
		stub{name: "cache", order: 10, provides: map[string]string{"cache": "1.2.0"}},
	)
	f.provide("greeter")
	f.provide("cache")
	_ = f.hooks.Register(hooks.BeforeModuleRegister, hooks.Global, func(ctx *hooks.Context) error {
		f.journal = append(f.journal, "before:"+ctx.Module)
		return nil
	})
	_ = f.hooks.Register(hooks.AfterModuleRegister, hooks.Global, func(ctx *hooks.Context) error {
		f.journal = append(f.journal, "after:"+ctx.Module)
		return nil
	})

	if err := f.loader.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	want := []string{
		"before:cache", "register:cache", "after:cache",
		"before:greeter", "register:greeter", "after:greeter",
		"boot:cache", "boot:greeter",
	}
	if diff := cmp.Diff(want, f.journal); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"cache", "greeter"} {
		if st, _ := f.loader.Status(name); st.State != module.Booted {
			t.Errorf("%s: status %s", name, st)
		}
	}
	if !f.loader.Booted() {
		t.Error("Booted() should be true")
	}
	if got := names(f.loader.Modules()); got != "cache,greeter" {
		t.Errorf("Modules: got %s", got)
	}
}

func TestBootstrap_BootSeesEveryRegistration(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "first", order: 1}, stub{name: "second", order: 2})
	first := f.provide("first")
	second := f.provide("second")
	second.onRegister = func(app *container.Container) error {
		app.Instance("second.service", "ready")
		return nil
	}
	var got string
	first.onBoot = func(app *container.Container) error {
		var err error
		got, err = container.Resolve[string](app, "second.service")
		return err
	}

	if err := f.loader.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if got != "ready" {
		t.Errorf("got %q", got)
	}
}

func TestBootstrap_SealsContainerAndHooks(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "cache"})
	f.provide("cache")
	if err := f.loader.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if !f.app.Sealed() {
		t.Error("container should be sealed")
	}
	err := f.hooks.Register(hooks.BeforeRequest, hooks.Global, func(*hooks.Context) error { return nil })
	if !errors.Is(err, hooks.ErrSealed) {
		t.Errorf("hooks should be sealed, got %v", err)
	}
	if err := f.loader.Bootstrap(); err == nil {
		t.Error("second Bootstrap should fail")
	}
}

func TestBootstrap_ConstructorInjection(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "greeter"})
	f.app.Instance(container.Key[*greeting](), &greeting{text: "hello"})
	f.loader.Provide("greeter", newInjected)

	if err := f.loader.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	m := container.MustResolve[*injected](f.app, module.ID("greeter"))
	if m.greeting == nil || m.greeting.text != "hello" {
		t.Errorf("dependency not injected: %+v", m.greeting)
	}
}

func TestBootstrap_HookSubscriberSeesOwnRegistration(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "audit", order: 1}, stub{name: "other", order: 2})
	f.loader.Provide("audit", container.Value(subscriber{&recorder{name: "audit", journal: &f.journal}}))
	f.provide("other")

	if err := f.loader.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	want := "self-hook:audit,register:audit,register:other,boot:audit,boot:other"
	if got := strings.Join(f.journal, ","); got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}

// ── Failures ─────────────────────────────────────────────────────────────────

func TestBootstrap_UnmetDependency(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "reports", requires: map[string]string{"Cache": ">=1.0.0"}})
	f.provide("reports")

	err := f.loader.Bootstrap()
	if !errors.Is(err, module.ErrUnmetDependency) {
		t.Fatalf("expected ErrUnmetDependency, got %v", err)
	}
	if !strings.Contains(err.Error(), "Cache") || !strings.Contains(err.Error(), ">=1.0.0") {
		t.Errorf("message should name Cache and >=1.0.0: %s", err)
	}
	st, _ := f.loader.Status("reports")
	if st.State != module.Failed || st.Reason == nil {
		t.Errorf("status: %s", st)
	}
	if len(f.journal) != 0 {
		t.Errorf("nothing should register: %v", f.journal)
	}
}

func TestBootstrap_RegisterErrorAborts(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "a", order: 1}, stub{name: "b", order: 2}, stub{name: "c", order: 3})
	f.provide("a")
	b := f.provide("b")
	f.provide("c")
	boom := errors.New("boom")
	b.onRegister = func(*container.Container) error { return boom }

	err := f.loader.Bootstrap()
	var pe *module.PhaseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PhaseError, got %v", err)
	}
	if pe.Module != "b" || pe.Phase != module.PhaseRegister || !errors.Is(err, boom) {
		t.Errorf("got %+v", pe)
	}
	if got := strings.Join(f.journal, ","); got != "register:a,register:b" {
		t.Errorf("journal: %s", got)
	}
	for _, name := range []string{"a", "b", "c"} {
		if st, _ := f.loader.Status(name); st.State != module.Failed {
			t.Errorf("%s: %s", name, st)
		}
	}
	if f.app.Sealed() {
		t.Error("a failed bootstrap must not seal the container")
	}
}

func TestBootstrap_BootPanicAborts(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "a", order: 1}, stub{name: "b", order: 2})
	a := f.provide("a")
	f.provide("b")
	a.onBoot = func(*container.Container) error { panic("disk on fire") }

	err := f.loader.Bootstrap()
	var pe *module.PhaseError
	if !errors.As(err, &pe) || pe.Module != "a" || pe.Phase != module.PhaseBoot {
		t.Fatalf("expected boot PhaseError for a, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("message should carry the panic: %s", err)
	}
	if st, _ := f.loader.Status("b"); st.State != module.Failed {
		t.Errorf("b: %s", st)
	}
}

func TestBootstrap_HookErrorAborts(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "a"})
	f.provide("a")
	_ = f.hooks.Register(hooks.BeforeModuleRegister, hooks.Global, func(*hooks.Context) error {
		return errors.New("vetoed")
	})

	err := f.loader.Bootstrap()
	if !errors.Is(err, hooks.ErrHandler) || !errors.Is(err, module.ErrPhase) {
		t.Errorf("got %v", err)
	}
	if len(f.journal) != 0 {
		t.Errorf("register must not run after a failing hook: %v", f.journal)
	}
}

func TestBootstrap_MissingImplementation(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "ghost"})

	err := f.loader.Bootstrap()
	var pe *module.PhaseError
	if !errors.As(err, &pe) || pe.Phase != module.PhaseResolve {
		t.Fatalf("expected resolve PhaseError, got %v", err)
	}
	if !errors.Is(err, container.ErrMissingService) {
		t.Errorf("expected ErrMissingService in chain, got %v", err)
	}
}

func TestBootstrap_NotAModule(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "odd"})
	f.loader.Provide("odd", container.Value("just a string"))

	err := f.loader.Bootstrap()
	if !errors.Is(err, module.ErrPhase) || !strings.Contains(err.Error(), "does not implement") {
		t.Errorf("got %v", err)
	}
}

type mailer struct{ host string }

func newMailer(host string) *mailer { return &mailer{host: host} }

func TestBootstrap_VerifyCatchesBrokenBindings(t *testing.T) {
	f := newFixture(t, module.Options{Verify: true}, stub{name: "mail"})
	m := f.provide("mail")
	m.onRegister = func(app *container.Container) error {
		app.Bind("mailer", container.Ctor(newMailer, container.Arg("host")))
		return nil
	}

	err := f.loader.Bootstrap()
	if !errors.Is(err, container.ErrUnresolvableParameter) {
		t.Fatalf("expected ErrUnresolvableParameter, got %v", err)
	}
	if strings.Contains(strings.Join(f.journal, ","), "boot:") {
		t.Errorf("boot must not run: %v", f.journal)
	}
}

func TestBootstrap_InvalidFrameworkVersion(t *testing.T) {
	loader := module.NewLoader(container.New(), hooks.New(), module.Options{FrameworkVersion: "one"})
	if err := loader.Bootstrap(); err == nil {
		t.Error("expected error for unparsable framework version")
	}
}

// ── Plan & observers ─────────────────────────────────────────────────────────

func TestPlan_NoSideEffects(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "b", order: 2}, stub{name: "a", order: 1})
	f.provide("a")
	f.provide("b")

	ordered, err := f.loader.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := names(ordered); got != "a,b" {
		t.Errorf("got %s", got)
	}
	if len(f.journal) != 0 || f.app.Sealed() {
		t.Error("Plan must not register or seal anything")
	}
	if st, _ := f.loader.Status("a"); st.State != module.Ordered {
		t.Errorf("status: %s", st)
	}
	if len(f.loader.Statuses()) != 2 {
		t.Errorf("Statuses: %v", f.loader.Statuses())
	}
}

func TestPlan_AfterBootstrapKeepsBooted(t *testing.T) {
	f := newFixture(t, module.Options{}, stub{name: "b", order: 2}, stub{name: "a", order: 1})
	f.provide("a")
	f.provide("b")
	if err := f.loader.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	ordered, err := f.loader.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := names(ordered); got != "a,b" {
		t.Errorf("got %s", got)
	}
	for name, st := range f.loader.Statuses() {
		if st.State != module.Booted {
			t.Errorf("%s: %s", name, st)
		}
	}
	if err := f.loader.Bootstrap(); err == nil {
		t.Error("second Bootstrap should fail")
	}
	if st, _ := f.loader.Status("a"); st.State != module.Booted {
		t.Errorf("a after second Bootstrap: %s", st)
	}
}

func TestObserver_SeesEveryTransition(t *testing.T) {
	obs := &transitions{}
	app, reg := container.New(), hooks.New()
	loader := module.NewLoader(app, reg, module.Options{
		FrameworkVersion: "1.0.0",
		Manifests:        []module.Manifest{manifest(stub{name: "solo"})},
	}, module.WithObserver(obs))
	var journal []string
	loader.Provide("solo", container.Value(&recorder{name: "solo", journal: &journal}))

	if err := loader.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	want := "solo:discovered,solo:validated,solo:ordered,solo:registering,solo:registered,solo:booting,solo:booted"
	if got := strings.Join(obs.seen, ","); got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
	if obs.finished != 1 || obs.lastErr != nil {
		t.Errorf("BootstrapFinished: %d, %v", obs.finished, obs.lastErr)
	}
}
