package container

import (
	"errors"
	"reflect"
	"slices"
	"sort"
)

// Validate statically checks every registered constructor and struct
// builder without invoking anything: reference dependencies must be bound
// or constructible, primitives need a default or a "$name" contextual value,
// and constructor dependencies must not form a cycle. All problems are
// returned together via errors.Join.
//
// Factories are opaque and are not inspected.
func (c *Container) Validate() error {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()

	keys := make([]string, 0, len(c.reg.bindings))
	for k := range c.reg.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	v := &verifier{r: c.reg, state: make(map[string]int)}
	for _, k := range keys {
		v.visit(k)
	}
	return errors.Join(v.errs...)
}

const (
	unvisited = iota
	visiting
	visited
)

type verifier struct {
	r     *registry
	state map[string]int
	path  []string
	errs  []error
}

// dependency is one statically known input of a builder.
type dependency struct {
	param    Param
	typ      reflect.Type
	variadic bool
}

func (v *verifier) visit(key string) {
	switch v.state[key] {
	case visiting:
		i := slices.Index(v.path, key)
		v.errs = append(v.errs, &CircularDependencyError{Chain: append(slices.Clone(v.path[i:]), key)})
		return
	case visited:
		return
	}

	b, ok := v.r.bindings[key]
	if !ok {
		v.state[key] = visited
		return
	}
	deps, owner := dependencies(b.builder)

	v.state[key] = visiting
	v.path = append(v.path, key)
	for _, d := range deps {
		v.check(key, owner, d)
	}
	v.path = v.path[:len(v.path)-1]
	v.state[key] = visited
}

func (v *verifier) check(key, owner string, d dependency) {
	p := d.param
	if d.variadic && p.id == "" && !p.hasDefault {
		return
	}
	if p.id != "" || isReference(d.typ) {
		id := p.id
		if id == "" {
			id = KeyOf(d.typ)
		}
		if v.r.contextualFor(key, id, v.r.canonical(id)) != nil {
			return
		}
		dep := v.r.canonical(id)
		switch {
		case v.r.bound(dep):
			v.visit(dep)
		case v.r.types[dep] != nil, p.id == "" && isStructLike(d.typ):
		case p.hasDefault:
		default:
			v.errs = append(v.errs, &MissingServiceError{ID: id, Chain: slices.Clone(v.path)})
		}
		return
	}
	if p.hasDefault || v.r.contextualFor(key, "$"+p.name, "$"+p.name) != nil {
		return
	}
	v.errs = append(v.errs, &UnresolvableParameterError{
		Param:  p.name,
		Owner:  owner,
		Reason: d.typ.String() + " parameter has no default",
	})
}

// dependencies lists the parameters and fields a builder will resolve.
func dependencies(b builder) ([]dependency, string) {
	switch k := b.(type) {
	case *Constructor:
		deps := make([]dependency, 0, len(k.params)+len(k.fields))
		for i, p := range k.params {
			deps = append(deps, dependency{
				param:    p,
				typ:      k.typ.In(i),
				variadic: k.typ.IsVariadic() && i == k.typ.NumIn()-1,
			})
		}
		return append(deps, fieldDependencies(k.typ.Out(0), k.fields)...), k.owner()
	case *structBuilder:
		return fieldDependencies(k.typ, k.fields), k.typ.String()
	}
	return nil, ""
}

func fieldDependencies(t reflect.Type, fields []Field) []dependency {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	deps := make([]dependency, 0, len(fields))
	for _, f := range fields {
		sf, ok := t.FieldByName(f.name)
		if !ok {
			continue
		}
		deps = append(deps, dependency{param: f.Param, typ: sf.Type})
	}
	return deps
}
