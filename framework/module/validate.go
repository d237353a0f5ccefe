package module

import (
	"errors"

	"github.com/km-arc/go-kernel/framework/semver"
)

// Environment holds the versions compatibility blocks are checked against.
type Environment struct {
	Framework semver.Version
	// Runtime is zero when the toolchain version is unknown; runtime
	// constraints are then skipped.
	Runtime semver.Version
}

// Check validates a discovered module set as a whole: compatibility with
// env, at most one provider per capability, and every requirement met by a
// provider at a satisfying version. A module may satisfy its own
// requirement. All problems are reported together.
func Check(ds []*Descriptor, env Environment) error {
	var errs []error

	var incompatible []Incompatibility
	for _, d := range ds {
		if d.framework != nil && !d.framework.Check(env.Framework) {
			incompatible = append(incompatible, Incompatibility{
				Module: d.Name, Target: "framework", Constraint: d.framework.String(), Actual: env.Framework.String(),
			})
		}
		if d.runtime != nil && !env.Runtime.IsZero() && !d.runtime.Check(env.Runtime) {
			incompatible = append(incompatible, Incompatibility{
				Module: d.Name, Target: "runtime", Constraint: d.runtime.String(), Actual: env.Runtime.String(),
			})
		}
	}
	if len(incompatible) > 0 {
		errs = append(errs, &IncompatibleModuleError{Entries: incompatible})
	}

	providers, dupErrs := capabilityProviders(ds)
	errs = append(errs, dupErrs...)

	var unmet []Unmet
	for _, d := range ds {
		for i, r := range d.Requires {
			p, ok := providers[r.Capability]
			if !ok {
				unmet = append(unmet, Unmet{Module: d.Name, Capability: r.Capability, Constraint: r.Constraint})
				continue
			}
			v, _ := p.ProvidedVersion(r.Capability)
			if !d.requires[i].Check(v) {
				unmet = append(unmet, Unmet{
					Module: d.Name, Capability: r.Capability, Constraint: r.Constraint,
					Provider: p.Name, Available: v.String(),
				})
			}
		}
	}
	if len(unmet) > 0 {
		errs = append(errs, &UnmetDependencyError{Unmet: unmet})
	}

	return errors.Join(errs...)
}

// capabilityProviders maps each capability to the first module providing
// it and reports every capability claimed more than once.
func capabilityProviders(ds []*Descriptor) (map[string]*Descriptor, []error) {
	providers := make(map[string]*Descriptor)
	claims := make(map[string][]string)
	var order []string
	for _, d := range ds {
		for _, p := range d.Provides {
			if _, seen := claims[p.Capability]; !seen {
				order = append(order, p.Capability)
				providers[p.Capability] = d
			}
			claims[p.Capability] = append(claims[p.Capability], d.Name)
		}
	}

	var errs []error
	for _, capability := range order {
		if mods := claims[capability]; len(mods) > 1 {
			errs = append(errs, &DuplicateCapabilityError{Capability: capability, Modules: mods})
		}
	}
	return providers, errs
}
