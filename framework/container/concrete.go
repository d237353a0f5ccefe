package container

import (
	"errors"
	"fmt"
	"reflect"
)

// ── Concretes ─────────────────────────────────────────────────────────────────

// Factory is a function that builds a concrete value from the container.
//
// The *Container passed in is scoped to the current resolution: resolving
// through it keeps cycle detection and contextual bindings working, so
// factories should use it rather than a captured outer container.
type Factory func(c *Container) (any, error)

// Params are named override values for a single MakeWith call.
type Params map[string]any

// builder is the internal form every accepted concrete is normalised into.
type builder interface {
	build(c *Container, id string, params Params) (any, error)
	describe() string
}

func (f Factory) build(c *Container, id string, _ Params) (any, error) {
	var (
		out any
		err error
	)
	if perr := guard(func() { out, err = f(c) }); perr != nil {
		return nil, &ContainerError{ID: id, Err: perr}
	}
	if err != nil {
		if isResolutionError(err) {
			return nil, err
		}
		return nil, &ContainerError{ID: id, Err: err}
	}
	return out, nil
}

func (f Factory) describe() string { return "factory" }

// value is a pre-built concrete handed out as-is.
type value struct{ v any }

// Value wraps a pre-built value so it can be used where a concrete is
// expected, e.g. in contextual bindings.
func Value(v any) any { return value{v: v} }

func (v value) build(*Container, string, Params) (any, error) { return v.v, nil }
func (v value) describe() string                               { return fmt.Sprintf("value %T", v.v) }

// ── Declarative parameter table ──────────────────────────────────────────────

// Param describes one positional constructor parameter.
//
//	container.Ctor(NewMailer,
//	    container.Arg("transport"),
//	    container.Arg("from").Default("noreply@example.com"),
//	)
type Param struct {
	name       string
	id         string
	def        any
	hasDefault bool
}

// Arg names a positional parameter. Names are the keys MakeWith overrides and
// "$name" contextual bindings match against.
func Arg(name string) Param { return Param{name: name} }

// From resolves the parameter from an explicit abstract id instead of the
// id derived from its type.
func (p Param) From(id string) Param {
	p.id = id
	return p
}

// Default is used when the parameter cannot be resolved otherwise.
func (p Param) Default(v any) Param {
	p.def = v
	p.hasDefault = true
	return p
}

// Field describes one struct field assigned after construction.
//
//	container.Struct[Mailer](container.Inject("Transport"), container.Inject("From").Default("x"))
type Field struct {
	Param
}

// Inject marks an exported struct field for post-construction injection.
func Inject(field string) Field { return Field{Param: Param{name: field}} }

// From resolves the field from an explicit abstract id.
func (f Field) From(id string) Field {
	f.Param = f.Param.From(id)
	return f
}

// Default is assigned when the field cannot be resolved otherwise.
func (f Field) Default(v any) Field {
	f.Param = f.Param.Default(v)
	return f
}

// ── Constructor ──────────────────────────────────────────────────────────────

var errorType = reflect.TypeFor[error]()

// Constructor is a Go function whose parameters are auto-wired.
//
// The function must return one value, or a value and an error.
type Constructor struct {
	fn     reflect.Value
	typ    reflect.Type
	params []Param
	fields []Field
}

// Ctor builds a Constructor from fn. Params are positional; missing entries
// get the names "arg0", "arg1", ... and resolve by parameter type.
// Ctor panics when fn is not a usable constructor.
func Ctor(fn any, params ...Param) *Constructor {
	k, err := newConstructor(fn, params)
	if err != nil {
		panic(&ContainerError{Err: err})
	}
	return k
}

func newConstructor(fn any, params []Param) (*Constructor, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("constructor must be a non-nil func, got %T", fn)
	}
	t := v.Type()
	switch {
	case t.NumOut() == 1 && t.Out(0) != errorType:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("constructor %s must return (T) or (T, error)", t)
	}
	if len(params) > t.NumIn() {
		return nil, fmt.Errorf("constructor %s takes %d parameters, %d declared", t, t.NumIn(), len(params))
	}
	all := make([]Param, t.NumIn())
	copy(all, params)
	for i := range all {
		if all[i].name == "" {
			all[i].name = fmt.Sprintf("arg%d", i)
		}
	}
	return &Constructor{fn: v, typ: t, params: all}, nil
}

// Inject adds post-construction field injection; the constructor must then
// return a pointer to a struct.
func (k *Constructor) Inject(fields ...Field) *Constructor {
	k.fields = append(k.fields, fields...)
	return k
}

func (k *Constructor) owner() string { return k.typ.Out(0).String() }

func (k *Constructor) describe() string { return "constructor " + k.typ.String() }

// ── Struct ───────────────────────────────────────────────────────────────────

// structBuilder allocates a struct and injects the declared fields.
type structBuilder struct {
	typ    reflect.Type // struct or pointer-to-struct
	fields []Field
}

// Struct builds a T (a struct or pointer to struct) with new and injects the
// declared fields.
//
//	c.Bind("report", container.Struct[*ReportGenerator](container.Inject("Logger")))
func Struct[T any](fields ...Field) any {
	t := reflect.TypeFor[T]()
	if !isStructLike(t) {
		panic(&ContainerError{Err: fmt.Errorf("Struct[%s]: not a struct type", t)})
	}
	return &structBuilder{typ: t, fields: fields}
}

func (s *structBuilder) describe() string { return "struct " + s.typ.String() }

// ── Normalisation ────────────────────────────────────────────────────────────

// normalize converts anything Bind accepts into a builder.
func normalize(concrete any) (builder, error) {
	switch v := concrete.(type) {
	case nil:
		return nil, errors.New("concrete must not be nil")
	case builder:
		return v, nil
	case func(*Container) (any, error):
		return Factory(v), nil
	case func(*Container) any:
		return Factory(func(c *Container) (any, error) { return v(c), nil }), nil
	case reflect.Type:
		if !isStructLike(v) {
			return nil, fmt.Errorf("type %s is not constructible", v)
		}
		return &structBuilder{typ: v}, nil
	}
	if reflect.ValueOf(concrete).Kind() == reflect.Func {
		return newConstructor(concrete, nil)
	}
	return value{v: concrete}, nil
}

func isStructLike(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// guard runs fn and converts a panic into an error.
func guard(fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	fn()
	return nil
}

// isResolutionError reports whether err already belongs to the container's
// taxonomy and must propagate unwrapped.
func isResolutionError(err error) bool {
	return errors.Is(err, ErrMissingService) ||
		errors.Is(err, ErrCircularDependency) ||
		errors.Is(err, ErrUnresolvableParameter) ||
		errors.Is(err, ErrContainer)
}
