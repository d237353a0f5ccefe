// Package module discovers, validates, orders and boots application modules.
//
// A module is a manifest (module.toml, module.yaml or module.hcl) plus a Go
// implementation bound in the container under ID(name). The Loader runs the
// lifecycle:
//
//	discover → validate → order → register (each module) → boot (each module)
//
// Register of every module completes before any Boot runs, so Boot may
// resolve anything another module bound.
package module

import (
	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/hooks"
)

// ── Module interface ──────────────────────────────────────────────────────────

// Module mirrors Laravel's ServiceProvider lifecycle.
//
//	type CacheModule struct{ module.BaseModule }
//
//	func (m *CacheModule) Register(app *container.Container) error {
//	    app.Singleton("cache", container.Ctor(cache.NewStore))
//	    return nil
//	}
//
// The implementation itself is resolved from the container, so its
// constructor can declare dependencies on core services:
//
//	loader.Provide("greeter", NewGreeterModule) // func NewGreeterModule(log *zerolog.Logger) *GreeterModule
type Module interface {
	// Register binds services into the container.
	// Do NOT resolve other modules' bindings here; use Boot for that.
	Register(app *container.Container) error

	// Boot is called after all modules are registered.
	// Safe to resolve and use any binding here.
	Boot(app *container.Container) error
}

// HookSubscriber is implemented by modules that attach lifecycle hook
// handlers. Hooks runs right before the module's BEFORE_MODULE_REGISTER
// hook fires, so Self-scoped handlers see their own registration.
type HookSubscriber interface {
	Hooks(r *hooks.Registrar) error
}

// ── BaseModule ────────────────────────────────────────────────────────────────

// BaseModule is an embeddable struct providing a no-op Boot.
//
//	type MyModule struct{ module.BaseModule }
//	func (m *MyModule) Register(app *container.Container) error { ... }
type BaseModule struct{}

func (BaseModule) Boot(*container.Container) error { return nil }

// ID returns the container id a module implementation is bound under.
func ID(name string) string { return "module." + name }
