package container

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Lifetime controls whether a binding is built once or on every resolution.
type Lifetime int

const (
	// Transient bindings produce a new instance on every Make.
	Transient Lifetime = iota
	// Singleton bindings are built once and cached for the process lifetime.
	Singleton
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	default:
		return fmt.Sprintf("Lifetime(%d)", int(l))
	}
}

// binding holds a registered builder and its lifetime.
type binding struct {
	builder  builder
	lifetime Lifetime
}

// Extender decorates an instance right after it is built.
type Extender func(instance any, c *Container) (any, error)

// ── Container ─────────────────────────────────────────────────────────────────

// registry holds the tables shared by a container and all of its
// resolution-scoped views.
type registry struct {
	mu sync.RWMutex

	// abstract → binding
	bindings map[string]*binding

	// abstract → resolved singleton instance
	instances map[string]any

	// alias → abstract (canonical key)
	aliases map[string]string

	// abstract → extender funcs
	extenders map[string][]Extender

	// tag → []abstract
	tags map[string][]string

	// contextual: when[parent][dependency] = builder
	contextual map[string]map[string]builder

	// abstract → type the container may construct without a binding
	types map[string]reflect.Type

	// resolved callbacks: []func(abstract, instance)
	afterResolving []func(string, any)

	// resolution started by an unscoped Make, shared until Seal
	inflight *resolution

	sealed bool
}

// resolution is the state of one top-level Make call.
type resolution struct {
	stack []string
}

func (r *resolution) top() string {
	if len(r.stack) == 0 {
		return ""
	}
	return r.stack[len(r.stack)-1]
}

func (r *resolution) contains(key string) bool { return slices.Contains(r.stack, key) }
func (r *resolution) push(key string)          { r.stack = append(r.stack, key) }
func (r *resolution) pop()                     { r.stack = r.stack[:len(r.stack)-1] }
func (r *resolution) chain() []string          { return slices.Clone(r.stack) }

// Container is the IoC container.
//
// It supports:
//   - Bind / Singleton / Instance / Alias (first registration wins)
//   - Make / MakeWith / Resolve (generic) with reflective auto-wiring
//   - Tags (group multiple abstractions under one tag)
//   - Extend (decorate instances as they are built)
//   - Contextual binding (when A needs B, give it C)
//   - Resolved event callbacks
//   - Seal (reject registrations once bootstrap is over)
//
// A Container is created explicitly with New; nothing in this package keeps
// global state. Factories receive a view of the container scoped to the
// current resolution, sharing the same tables.
type Container struct {
	reg *registry
	res *resolution
}

// New creates an empty container that is bound to itself as "container".
func New() *Container {
	c := &Container{reg: &registry{
		bindings:   make(map[string]*binding),
		instances:  make(map[string]any),
		aliases:    make(map[string]string),
		extenders:  make(map[string][]Extender),
		tags:       make(map[string][]string),
		contextual: make(map[string]map[string]builder),
		types:      make(map[string]reflect.Type),
	}}
	c.Instance("container", c)
	return c
}

// scoped returns a view of c that continues the given resolution.
func (c *Container) scoped(res *resolution) *Container {
	return &Container{reg: c.reg, res: res}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient concrete. If abstract is already bound the call
// is a no-op.
//
// concrete may be a Factory, a func(*Container) (any, error), a *Constructor
// from Ctor, a Struct[T] builder, a reflect.Type of a struct, any other Go
// function (auto-wired as a constructor) or a plain value. Wrap function
// values that should be handed out as-is with Value.
//
//	c.Bind("UserRepository", container.Ctor(NewUserRepository, container.Arg("db")))
func (c *Container) Bind(abstract string, concrete any) {
	c.BindLifetime(abstract, concrete, Transient)
}

// Singleton registers a concrete whose result is cached after first
// resolution.
//
//	c.Singleton("cache", func(c *container.Container) (any, error) {
//	    cfg, err := container.Resolve[*config.Config](c, "config")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return cache.New(cfg), nil
//	})
func (c *Container) Singleton(abstract string, concrete any) {
	c.BindLifetime(abstract, concrete, Singleton)
}

// BindLifetime registers concrete with an explicit lifetime.
// It panics with a *ContainerError when concrete cannot be used, and with
// ErrSealed once the container is sealed.
func (c *Container) BindLifetime(abstract string, concrete any, lifetime Lifetime) {
	b, err := normalize(concrete)
	if err != nil {
		panic(&ContainerError{ID: abstract, Err: err})
	}

	r := c.writeLock("bind " + abstract)
	defer r.mu.Unlock()

	key := r.canonical(abstract)
	if r.bound(key) {
		return
	}
	r.bindings[key] = &binding{builder: b, lifetime: lifetime}
	r.learn(b)
}

// Instance registers a pre-built value as a singleton. It does not overwrite
// an existing instance or binding.
//
//	c.Instance("config", myConfig)
func (c *Container) Instance(abstract string, instance any) {
	r := c.writeLock("instance " + abstract)
	defer r.mu.Unlock()

	key := r.canonical(abstract)
	if r.bound(key) {
		return
	}
	r.instances[key] = instance
}

// Alias registers an alternative name for an abstract. An existing alias is
// never replaced.
//
//	c.Alias("cache", "cacheManager")
func (c *Container) Alias(abstract, alias string) {
	if abstract == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", abstract))
	}
	r := c.writeLock("alias " + alias)
	defer r.mu.Unlock()

	if _, ok := r.aliases[alias]; ok {
		return
	}
	r.aliases[alias] = r.canonical(abstract)
}

// Constructible teaches the container struct types it may build directly
// when they are requested without a binding. Pass typed nil pointers or zero
// values.
//
//	c.Constructible((*ReportGenerator)(nil))
func (c *Container) Constructible(samples ...any) {
	r := c.writeLock("constructible")
	defer r.mu.Unlock()

	for _, s := range samples {
		t := reflect.TypeOf(s)
		if !isStructLike(t) {
			panic(&ContainerError{Err: fmt.Errorf("type %T is not constructible", s)})
		}
		r.learnType(t)
	}
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates every instance of abstract built from now on.
// Extending a singleton that has already been resolved panics: the cached
// instance may already be shared and cannot be replaced.
//
//	c.Extend("logger", func(instance any, c *container.Container) (any, error) {
//	    return logging.WithTimestamps(instance.(*Logger)), nil
//	})
func (c *Container) Extend(abstract string, fn Extender) {
	r := c.writeLock("extend " + abstract)
	defer r.mu.Unlock()

	key := r.canonical(abstract)
	if _, ok := r.instances[key]; ok {
		panic(&ContainerError{ID: abstract, Err: fmt.Errorf("cannot extend an instance that is already resolved")})
	}
	r.extenders[key] = append(r.extenders[key], fn)
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates abstracts with one or more named groups, preserving
// insertion order.
//
//	c.Tag([]string{"CpuReport", "MemoryReport"}, "reports")
func (c *Container) Tag(abstracts []string, tags ...string) {
	r := c.writeLock("tag")
	defer r.mu.Unlock()

	for _, tag := range tags {
		r.tags[tag] = append(r.tags[tag], abstracts...)
	}
}

// Tagged resolves all abstracts registered under a tag, in tag order.
//
//	reports, err := c.Tagged("reports")
func (c *Container) Tagged(tag string) ([]any, error) {
	c.reg.mu.RLock()
	abstracts := slices.Clone(c.reg.tags[tag])
	c.reg.mu.RUnlock()

	result := make([]any, 0, len(abstracts))
	for _, abs := range abstracts {
		instance, err := c.Make(abs)
		if err != nil {
			return nil, fmt.Errorf("container: resolving tag [%s]: %w", tag, err)
		}
		result = append(result, instance)
	}
	return result, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Make resolves an abstract from the container.
//
//	repo, err := c.Make("UserRepository")
func (c *Container) Make(abstract string) (any, error) {
	return c.resolve(abstract, nil, nil)
}

// Get is an alias of Make for consumers that only look services up.
func (c *Container) Get(abstract string) (any, error) {
	return c.resolve(abstract, nil, nil)
}

// MakeWith resolves abstract, passing override values for constructor
// parameters by name. Results built with overrides are never cached.
//
//	mailer, err := c.MakeWith("mailer", container.Params{"from": "ops@example.com"})
func (c *Container) MakeWith(abstract string, params Params) (any, error) {
	return c.resolve(abstract, params, nil)
}

// resolve is the internal resolver. hint is the Go type the caller expects,
// used to construct unbound struct types directly.
func (c *Container) resolve(abstract string, params Params, hint reflect.Type) (any, error) {
	res, done := c.current()
	defer done()
	r := c.reg

	r.mu.RLock()
	key := r.canonical(abstract)
	var contextual builder
	if parent := res.top(); parent != "" {
		contextual = r.contextualFor(parent, abstract, key)
	}
	instance, cached := r.instances[key]
	b := r.bindings[key]
	known := r.types[key]
	r.mu.RUnlock()

	if contextual == nil && cached && len(params) == 0 {
		return instance, nil
	}
	if res.contains(key) {
		return nil, &CircularDependencyError{Chain: append(res.chain(), key)}
	}

	lifetime := Transient
	var bld builder
	switch {
	case contextual != nil:
		bld = contextual
	case b != nil:
		bld, lifetime = b.builder, b.lifetime
	case cached:
		return instance, nil
	default:
		t := known
		if t == nil && isStructLike(hint) {
			t = hint
		}
		if !isStructLike(t) {
			return nil, &MissingServiceError{ID: abstract, Chain: res.chain()}
		}
		bld = &structBuilder{typ: t}
	}

	res.push(key)
	obj, err := bld.build(c.scoped(res), key, params)
	if err == nil {
		obj, err = c.applyExtenders(key, obj, res)
	}
	res.pop()
	if err != nil {
		return nil, err
	}

	if lifetime == Singleton && contextual == nil && len(params) == 0 {
		obj = r.store(key, obj)
	}

	r.fireAfterResolving(key, obj)
	return obj, nil
}

// current returns the resolution a call continues. Scoped views carry their
// own. Until Seal, registration and boot are single-threaded, so an unscoped
// call made while another resolution is in flight (a factory closing over the
// outer container) joins it and keeps its stack and contextual parent. After
// Seal every unscoped call starts a fresh resolution.
func (c *Container) current() (*resolution, func()) {
	if c.res != nil {
		return c.res, func() {}
	}
	r := c.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.sealed:
		return &resolution{}, func() {}
	case r.inflight != nil:
		return r.inflight, func() {}
	}
	res := &resolution{}
	r.inflight = res
	return res, func() {
		r.mu.Lock()
		r.inflight = nil
		r.mu.Unlock()
	}
}

func (c *Container) applyExtenders(key string, instance any, res *resolution) (any, error) {
	c.reg.mu.RLock()
	exts := slices.Clone(c.reg.extenders[key])
	c.reg.mu.RUnlock()

	for _, ext := range exts {
		var (
			out any
			err error
		)
		if perr := guard(func() { out, err = ext(instance, c.scoped(res)) }); perr != nil {
			return nil, &ContainerError{ID: key, Err: perr}
		}
		if err != nil {
			if isResolutionError(err) {
				return nil, err
			}
			return nil, &ContainerError{ID: key, Err: err}
		}
		instance = out
	}
	return instance, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound returns true if an abstract has been registered.
func (c *Container) Bound(abstract string) bool {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()
	return c.reg.bound(c.reg.canonical(abstract))
}

// Resolved returns true if the abstract has a cached instance.
func (c *Container) Resolved(abstract string) bool {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()
	_, ok := c.reg.instances[c.reg.canonical(abstract)]
	return ok
}

// Bindings returns all registered abstract keys, sorted (for debugging).
func (c *Container) Bindings() []string {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()
	out := make([]string, 0, len(c.reg.bindings)+len(c.reg.instances))
	for k := range c.reg.bindings {
		out = append(out, k)
	}
	for k := range c.reg.instances {
		if _, already := c.reg.bindings[k]; !already {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Seal rejects every further registration. Resolution keeps working.
func (c *Container) Seal() {
	c.reg.mu.Lock()
	defer c.reg.mu.Unlock()
	c.reg.sealed = true
}

// Sealed reports whether Seal has been called.
func (c *Container) Sealed() bool {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()
	return c.reg.sealed
}

// writeLock takes the write lock, panicking if the container is sealed.
func (c *Container) writeLock(op string) *registry {
	c.reg.mu.Lock()
	if c.reg.sealed {
		c.reg.mu.Unlock()
		panic(fmt.Errorf("%w: %s", ErrSealed, op))
	}
	return c.reg
}

// canonical resolves an alias to its canonical key (must hold mu).
func (r *registry) canonical(abstract string) string {
	if target, ok := r.aliases[abstract]; ok {
		return target
	}
	return abstract
}

func (r *registry) bound(key string) bool {
	_, hasBinding := r.bindings[key]
	_, hasInstance := r.instances[key]
	return hasBinding || hasInstance
}

func (r *registry) contextualFor(parent, abstract, key string) builder {
	m, ok := r.contextual[parent]
	if !ok {
		return nil
	}
	if b, ok := m[key]; ok {
		return b
	}
	return m[abstract]
}

// store caches a singleton; if another resolution stored one first, that
// instance wins so every caller observes the same object.
func (r *registry) store(key string, instance any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.instances[key]; ok {
		return existing
	}
	r.instances[key] = instance
	return instance
}

// learn records the struct types a builder may ask for (must hold mu).
func (r *registry) learn(b builder) {
	switch v := b.(type) {
	case *Constructor:
		for i := range v.typ.NumIn() {
			r.learnType(v.typ.In(i))
		}
	case *structBuilder:
		r.learnType(v.typ)
	}
}

func (r *registry) learnType(t reflect.Type) {
	if !isStructLike(t) {
		return
	}
	key := KeyOf(t)
	if _, ok := r.types[key]; !ok {
		r.types[key] = t
	}
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after any abstract is built.
// Cached singleton hits do not fire it.
func (c *Container) AfterResolving(cb func(abstract string, instance any)) {
	r := c.writeLock("after resolving callback")
	defer r.mu.Unlock()
	r.afterResolving = append(r.afterResolving, cb)
}

func (r *registry) fireAfterResolving(abstract string, instance any) {
	r.mu.RLock()
	cbs := slices.Clone(r.afterResolving)
	r.mu.RUnlock()
	for _, cb := range cbs {
		cb(abstract, instance)
	}
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, useful as a stable
// abstract key when working with interfaces.
//
//	key := container.TypeKey((*UserRepository)(nil))  // "example.com/app.UserRepository"
func TypeKey(v any) string {
	return KeyOf(reflect.TypeOf(v))
}

// KeyOf returns the abstract key derived from a type. Pointers collapse onto
// their element type, so *Foo and Foo share a key.
func KeyOf(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Key returns the abstract key of T.
//
//	c.Singleton(container.Key[Logger](), NewFileLogger)
func Key[T any]() string {
	return KeyOf(reflect.TypeFor[T]())
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve calls Make and type-asserts the result.
//
//	db, err := container.Resolve[*sql.DB](c, "db")
func Resolve[T any](c *Container, abstract string) (T, error) {
	var zero T
	instance, err := c.Make(abstract)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &ContainerError{ID: abstract, Err: fmt.Errorf("resolved to %T, want %s", instance, reflect.TypeFor[T]())}
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure. Meant for wiring code
// that runs after a successful bootstrap.
func MustResolve[T any](c *Container, abstract string) T {
	typed, err := Resolve[T](c, abstract)
	if err != nil {
		panic(err)
	}
	return typed
}

// MakeType resolves T under its type key. Struct types are constructed
// directly when nothing is bound for them.
//
//	gen, err := container.MakeType[*ReportGenerator](c)
func MakeType[T any](c *Container) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	instance, err := c.resolve(KeyOf(t), nil, t)
	if err != nil {
		return zero, err
	}
	v, err := adapt(reflect.ValueOf(instance), t)
	if err != nil {
		return zero, &ContainerError{ID: KeyOf(t), Err: err}
	}
	return v.Interface().(T), nil
}
