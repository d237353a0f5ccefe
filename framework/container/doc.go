// Package container provides a Laravel-style IoC (Inversion of Control)
// container for Go with reflective auto-wiring.
//
// # Overview
//
// The container manages the instantiation and lifecycle of the application's
// dependencies. It supports transient bindings, singletons, pre-built
// instances, aliases, tags, contextual bindings and extension (decoration).
// Registration is first-wins: binding an id twice keeps the first concrete.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register: modules add bindings during bootstrap
//  3. Seal: c.Seal() once every module has booted
//  4. Serve requests, resolving only
//
// # Bindings
//
//	// Transient, new instance every Make()
//	// Laravel: $app->bind(Foo::class, fn($app) => new Foo)
//	c.Bind("Foo", func(c *container.Container) (any, error) { return &Foo{}, nil })
//
//	// Singleton, created once and reused
//	c.Singleton("cache", container.Ctor(cache.New, container.Arg("cfg").From("config")))
//
//	// Pre-built value
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", myConfig)
//
//	// Alias
//	c.Alias("cache", "cacheManager")
//
// # Auto-wiring
//
// Any Go function returning (T) or (T, error) is a constructor. Parameters
// whose type is a pointer to struct, a struct or a non-empty interface are
// resolved from the container under their type key (see KeyOf). Other
// parameters need a name, so they can be overridden with MakeWith or given
// contextually, and optionally a default:
//
//	c.Bind("mailer", container.Ctor(NewMailer,
//	    container.Arg("transport"),
//	    container.Arg("from").Default("noreply@example.com"),
//	))
//
// Struct types are built with new and receive the fields declared through
// Inject:
//
//	c.Bind("report", container.Struct[*Report](container.Inject("Logger")))
//
// # Resolving
//
//	raw, err := c.Make("cache")
//	cache, err := container.Resolve[*RedisCache](c, "cache")
//	gen, err := container.MakeType[*ReportGenerator](c)
//
// Failures are typed: *MissingServiceError, *CircularDependencyError,
// *UnresolvableParameterError and *ContainerError. Each unwraps to a
// sentinel (ErrMissingService, ...) for errors.Is.
//
// # Contextual Binding
//
//	// Laravel: $app->when(PhotoController::class)
//	//              ->needs(Filesystem::class)
//	//              ->give(fn() => new S3Filesystem)
//	c.When("PhotoController").
//	    Needs("Filesystem").
//	    Give(func(c *container.Container) (any, error) { return &S3Filesystem{}, nil })
//
// # Tags
//
//	c.Tag([]string{"CpuReport", "MemReport"}, "reports")
//	reports, err := c.Tagged("reports")  // []any, tag order
//
// # Extend / Decorate
//
//	c.Extend("logger", func(instance any, c *container.Container) (any, error) {
//	    return &TimestampLogger{Inner: instance.(*Logger)}, nil
//	})
package container
