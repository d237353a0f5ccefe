package container

import (
	"errors"
	"fmt"
	"reflect"
)

// ── Auto-wiring ──────────────────────────────────────────────────────────────

func (k *Constructor) build(c *Container, id string, params Params) (any, error) {
	owner := k.owner()
	n := k.typ.NumIn()
	args := make([]reflect.Value, n)
	for i, p := range k.params {
		t := k.typ.In(i)
		var (
			v   reflect.Value
			err error
		)
		if k.typ.IsVariadic() && i == n-1 {
			v, err = c.variadic(p, t, owner, params)
		} else {
			v, err = c.argument(p, t, owner, params)
		}
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	var out []reflect.Value
	perr := guard(func() {
		if k.typ.IsVariadic() {
			out = k.fn.CallSlice(args)
			return
		}
		out = k.fn.Call(args)
	})
	if perr != nil {
		return nil, &ContainerError{ID: id, Err: perr}
	}
	if len(out) == 2 && !out[1].IsNil() {
		err := out[1].Interface().(error)
		if isResolutionError(err) {
			return nil, err
		}
		return nil, &ContainerError{ID: id, Err: err}
	}

	result := out[0]
	if len(k.fields) > 0 {
		if result.Kind() != reflect.Pointer || result.Type().Elem().Kind() != reflect.Struct {
			return nil, &ContainerError{ID: id, Err: fmt.Errorf("field injection needs a pointer to struct, %s returns %s", k.typ, result.Type())}
		}
		if result.IsNil() {
			return nil, &ContainerError{ID: id, Err: fmt.Errorf("%s returned nil", k.typ)}
		}
		if err := c.inject(result.Elem(), k.fields, owner, params); err != nil {
			return nil, err
		}
	}
	return result.Interface(), nil
}

func (s *structBuilder) build(c *Container, _ string, params Params) (any, error) {
	elem := s.typ
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	ptr := reflect.New(elem)
	if err := c.inject(ptr.Elem(), s.fields, s.typ.String(), params); err != nil {
		return nil, err
	}
	if s.typ.Kind() == reflect.Pointer {
		return ptr.Interface(), nil
	}
	return ptr.Elem().Interface(), nil
}

// inject assigns the declared fields of an addressable struct value.
func (c *Container) inject(target reflect.Value, fields []Field, owner string, params Params) error {
	for _, f := range fields {
		sf, ok := target.Type().FieldByName(f.name)
		if !ok {
			return &UnresolvableParameterError{Param: f.name, Owner: owner, Reason: "no such field"}
		}
		if !sf.IsExported() {
			return &UnresolvableParameterError{Param: f.name, Owner: owner, Reason: "field is not exported"}
		}
		v, err := c.argument(f.Param, sf.Type, owner, params)
		if err != nil {
			return err
		}
		target.FieldByIndex(sf.Index).Set(v)
	}
	return nil
}

// argument resolves one parameter or field. Order: named override, then the
// container for reference types (or an explicit From id), then a "$name"
// contextual primitive, then the declared default.
func (c *Container) argument(p Param, t reflect.Type, owner string, params Params) (reflect.Value, error) {
	if raw, ok := params[p.name]; ok {
		v, err := adapt(reflect.ValueOf(raw), t)
		if err != nil {
			return reflect.Value{}, &UnresolvableParameterError{Param: p.name, Owner: owner, Reason: err.Error()}
		}
		return v, nil
	}

	if p.id != "" || isReference(t) {
		id, hint := p.id, reflect.Type(nil)
		if id == "" {
			id, hint = KeyOf(t), t
		}
		obj, err := c.resolve(id, nil, hint)
		if err != nil {
			var missing *MissingServiceError
			if p.hasDefault && errors.As(err, &missing) && missing.ID == id {
				return p.fallback(t, owner)
			}
			return reflect.Value{}, err
		}
		v, err := adapt(reflect.ValueOf(obj), t)
		if err != nil {
			return reflect.Value{}, &UnresolvableParameterError{Param: p.name, Owner: owner, Reason: err.Error()}
		}
		return v, nil
	}

	if b := c.primitive(p.name); b != nil {
		obj, err := b.build(c, "$"+p.name, nil)
		if err != nil {
			return reflect.Value{}, err
		}
		v, err := adapt(reflect.ValueOf(obj), t)
		if err != nil {
			return reflect.Value{}, &UnresolvableParameterError{Param: p.name, Owner: owner, Reason: err.Error()}
		}
		return v, nil
	}

	if p.hasDefault {
		return p.fallback(t, owner)
	}
	return reflect.Value{}, &UnresolvableParameterError{
		Param:  p.name,
		Owner:  owner,
		Reason: fmt.Sprintf("%s parameter has no default", t),
	}
}

// variadic resolves the trailing ...T parameter; it is empty unless an
// override, contextual value or default supplies the slice.
func (c *Container) variadic(p Param, t reflect.Type, owner string, params Params) (reflect.Value, error) {
	_, overridden := params[p.name]
	if overridden || p.id != "" || p.hasDefault || c.primitive(p.name) != nil {
		return c.argument(p, t, owner, params)
	}
	return reflect.MakeSlice(t, 0, 0), nil
}

// primitive returns the "$name" contextual builder for the concrete being
// built, if any.
func (c *Container) primitive(name string) builder {
	if c.res == nil {
		return nil
	}
	parent := c.res.top()
	if parent == "" {
		return nil
	}
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()
	return c.reg.contextualFor(parent, "$"+name, "$"+name)
}

func (p Param) fallback(t reflect.Type, owner string) (reflect.Value, error) {
	v, err := adapt(reflect.ValueOf(p.def), t)
	if err != nil {
		return reflect.Value{}, &UnresolvableParameterError{Param: p.name, Owner: owner, Reason: "default: " + err.Error()}
	}
	return v, nil
}

// isReference reports whether values of t are looked up in the container
// rather than supplied as primitives.
func isReference(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return t.NumMethod() > 0
	case reflect.Pointer:
		return t.Elem().Kind() == reflect.Struct
	case reflect.Struct:
		return true
	}
	return false
}

// adapt makes v usable where t is expected: direct assignment, pointer
// dereference, address-of, or a numeric/string conversion.
func adapt(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", t)
	}

	vt := v.Type()
	switch {
	case vt.AssignableTo(t):
		out := reflect.New(t).Elem()
		out.Set(v)
		return out, nil
	case vt.Kind() == reflect.Pointer && vt.Elem().AssignableTo(t):
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("cannot dereference nil %s", vt)
		}
		return v.Elem(), nil
	case t.Kind() == reflect.Pointer && vt.AssignableTo(t.Elem()):
		p := reflect.New(t.Elem())
		p.Elem().Set(v)
		return p, nil
	case convertible(vt, t):
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", vt, t)
}

func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	numeric := func(k reflect.Kind) bool {
		switch k {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
		return false
	}
	switch {
	case numeric(from.Kind()) && numeric(to.Kind()):
		return true
	case from.Kind() == reflect.String && to.Kind() == reflect.String:
		return true
	case from.Kind() == reflect.Bool && to.Kind() == reflect.Bool:
		return true
	}
	return false
}
