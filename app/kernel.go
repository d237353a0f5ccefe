// Package app registers the application's modules with the kernel. Each
// module directory holds its manifest next to its implementation.
package app

import (
	"github.com/km-arc/go-kernel/app/audit"
	"github.com/km-arc/go-kernel/app/cache"
	"github.com/km-arc/go-kernel/app/greeter"
	kernel "github.com/km-arc/go-kernel/framework/app"
)

// Register provides the implementation of every module shipped in app/.
// Manifests are discovered separately from the configured module paths; a
// manifest without an implementation fails bootstrap.
func Register(a *kernel.Application) {
	a.Provide("cache", cache.New)
	a.Provide("greeter", greeter.New)
	a.Provide("audit", audit.New)
}
