package container

import "fmt"

// ContextualBuilder implements the fluent contextual binding API.
//
//	// Laravel: $app->when(PhotoController::class)->needs(Filesystem::class)->give(...)
//	c.When("PhotoController").Needs("Filesystem").Give(func(c *container.Container) (any, error) {
//	    return filesystem.NewS3(...), nil
//	})
//
// The override applies only while the named parent is being built. Resolving
// the same dependency at the top level, or for any other parent, uses the
// normal binding.
type ContextualBuilder struct {
	container *Container
	parents   []string
	needs     string
}

// When starts a contextual binding for one or more parent abstracts.
func (c *Container) When(parents ...string) *ContextualBuilder {
	return &ContextualBuilder{container: c, parents: parents}
}

// Needs specifies which abstract the parent depends on. A name prefixed with
// "$" targets a primitive constructor parameter or field of that name.
//
//	c.When("mailer").Needs("$from").GiveValue("ops@example.com")
func (b *ContextualBuilder) Needs(abstract string) *ContextualBuilder {
	b.needs = abstract
	return b
}

// Give provides the concrete used when the parent resolves the dependency.
// It accepts anything Bind accepts. A later Give for the same pair replaces
// the earlier one.
func (b *ContextualBuilder) Give(concrete any) {
	if b.needs == "" {
		panic(fmt.Sprintf("container: contextual binding for %v has no Needs", b.parents))
	}
	bld, err := normalize(concrete)
	if err != nil {
		panic(&ContainerError{ID: b.needs, Err: err})
	}

	r := b.container.writeLock("contextual " + b.needs)
	defer r.mu.Unlock()

	needs := b.needs
	if needs[0] != '$' {
		needs = r.canonical(needs)
	}
	for _, parent := range b.parents {
		parent = r.canonical(parent)
		if _, ok := r.contextual[parent]; !ok {
			r.contextual[parent] = make(map[string]builder)
		}
		r.contextual[parent][needs] = bld
	}
}

// GiveValue is a shorthand for Give when the value is a simple scalar or
// pre-built instance, including function values.
//
//	// Laravel: ->give('/tmp/photos')
//	c.When("PhotoController").Needs("$storagePath").GiveValue("/tmp/photos")
func (b *ContextualBuilder) GiveValue(v any) {
	b.Give(value{v: v})
}
