// Package hooks is the lifecycle hook registry.
//
// Hook names are a closed set. Handlers are appended per name and run
// synchronously in registration order; there is no way to remove one.
//
//	reg := hooks.New()
//	reg.Register(hooks.BeforeRequest, hooks.Global, func(ctx *hooks.Context) error {
//	    log.Info().Str("path", ctx.Request.URL.Path).Msg("incoming")
//	    return nil
//	})
//
// Module-scoped handlers are registered through a Registrar and only run
// when the context names that module:
//
//	reg.For("audit").Register(hooks.AfterModuleRegister, hooks.Self, handler)
package hooks

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/km-arc/go-kernel/framework/container"
)

// ── Names ─────────────────────────────────────────────────────────────────────

// Name identifies a lifecycle hook.
type Name string

const (
	BeforeModuleRegister Name = "BEFORE_MODULE_REGISTER"
	AfterModuleRegister  Name = "AFTER_MODULE_REGISTER"
	BeforeRequest        Name = "BEFORE_REQUEST"
	AfterRequest         Name = "AFTER_REQUEST"
	AfterResponse        Name = "AFTER_RESPONSE"
)

var names = []Name{BeforeModuleRegister, AfterModuleRegister, BeforeRequest, AfterRequest, AfterResponse}

// Names returns every known hook, in lifecycle order.
func Names() []Name { return slices.Clone(names) }

// Valid reports whether n is one of the known hooks.
func (n Name) Valid() bool { return slices.Contains(names, n) }

// Parse converts a string into a known Name.
func Parse(s string) (Name, error) {
	n := Name(s)
	if !n.Valid() {
		return "", &UnknownHookError{Name: s}
	}
	return n, nil
}

// Scope selects which triggers a handler sees.
type Scope int

const (
	// Global handlers run on every trigger of their hook.
	Global Scope = iota
	// Self handlers run only when the context's Module is their owner.
	Self
)

func (s Scope) String() string {
	switch s {
	case Global:
		return "global"
	case Self:
		return "self"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// ── Context & handlers ────────────────────────────────────────────────────────

// Context is passed to every handler of one trigger. Fields that do not
// apply to a hook are left zero: module hooks carry Module, request hooks
// carry Request and, after the handler ran, Status and Err.
type Context struct {
	Hook      Name
	Module    string
	Container *container.Container
	Request   *http.Request
	Status    int
	Err       error
}

// Handler reacts to a hook. Returning an error stops the dispatch.
type Handler func(ctx *Context) error

// Entry is one registered handler.
type Entry struct {
	Hook    Name
	Scope   Scope
	Owner   string
	Handler Handler
}

// ── Registry ──────────────────────────────────────────────────────────────────

// Registry stores handlers per hook name.
type Registry struct {
	mu        sync.RWMutex
	entries   map[Name][]Entry
	observers []func(name Name, handled int, err error)
	sealed    bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[Name][]Entry)}
}

// Register appends a global handler, or fails for unknown names. Self scope
// needs an owner and is only available through For.
func (r *Registry) Register(name Name, scope Scope, h Handler) error {
	return r.register(name, scope, "", h)
}

func (r *Registry) register(name Name, scope Scope, owner string, h Handler) error {
	if !name.Valid() {
		return &UnknownHookError{Name: string(name)}
	}
	if h == nil {
		return fmt.Errorf("hooks: nil handler for %s", name)
	}
	if scope == Self && owner == "" {
		return fmt.Errorf("hooks: %s scope on %s needs an owner, use For(owner)", scope, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: cannot register %s", ErrSealed, name)
	}
	r.entries[name] = append(r.entries[name], Entry{Hook: name, Scope: scope, Owner: owner, Handler: h})
	return nil
}

// For returns a Registrar that registers handlers on behalf of owner.
func (r *Registry) For(owner string) *Registrar {
	return &Registrar{registry: r, owner: owner}
}

// Trigger runs every handler registered for name, in registration order.
// Self handlers are skipped unless ctx.Module equals their owner. The first
// failing handler (error or panic) stops the dispatch.
func (r *Registry) Trigger(name Name, ctx *Context) error {
	if !name.Valid() {
		return &UnknownHookError{Name: string(name)}
	}
	if ctx == nil {
		ctx = &Context{}
	}
	ctx.Hook = name

	r.mu.RLock()
	entries := slices.Clone(r.entries[name])
	observers := slices.Clone(r.observers)
	r.mu.RUnlock()

	handled := 0
	var err error
	for _, e := range entries {
		if e.Scope == Self && e.Owner != ctx.Module {
			continue
		}
		handled++
		if err = call(e, ctx); err != nil {
			break
		}
	}

	for _, obs := range observers {
		obs(name, handled, err)
	}
	return err
}

func call(e Entry, ctx *Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &HandlerError{Hook: e.Hook, Owner: e.Owner, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if herr := e.Handler(ctx); herr != nil {
		return &HandlerError{Hook: e.Hook, Owner: e.Owner, Err: herr}
	}
	return nil
}

// Count returns the number of handlers registered for name.
func (r *Registry) Count(name Name) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[name])
}

// Entries returns a copy of the handlers registered for name.
func (r *Registry) Entries(name Name) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries[name])
}

// OnTrigger registers an observer called after every Trigger with the number
// of handlers that ran and the dispatch result.
func (r *Registry) OnTrigger(fn func(name Name, handled int, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// Seal rejects further registrations. Triggering keeps working.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// ── Registrar ─────────────────────────────────────────────────────────────────

// Registrar registers handlers owned by one module.
type Registrar struct {
	registry *Registry
	owner    string
}

// Owner returns the module name handlers are registered for.
func (g *Registrar) Owner() string { return g.owner }

// Register appends a handler owned by this registrar's module.
func (g *Registrar) Register(name Name, scope Scope, h Handler) error {
	return g.registry.register(name, scope, g.owner, h)
}

// ── Errors ────────────────────────────────────────────────────────────────────

var (
	ErrUnknownHook = errors.New("unknown hook")
	ErrHandler     = errors.New("hook handler failed")
	ErrSealed      = errors.New("hook registry is sealed")
)

// UnknownHookError is returned for names outside the closed set.
type UnknownHookError struct {
	Name string
}

func (e *UnknownHookError) Error() string {
	return fmt.Sprintf("hooks: unknown hook %q", e.Name)
}

func (e *UnknownHookError) Unwrap() error { return ErrUnknownHook }

// HandlerError wraps the failure of a single handler.
type HandlerError struct {
	Hook  Name
	Owner string
	Err   error
}

func (e *HandlerError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("hooks: %s handler: %v", e.Hook, e.Err)
	}
	return fmt.Sprintf("hooks: %s handler of %s: %v", e.Hook, e.Owner, e.Err)
}

func (e *HandlerError) Unwrap() []error { return []error{ErrHandler, e.Err} }
