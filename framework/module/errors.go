package module

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels wrapped by the typed errors below, for errors.Is checks.
var (
	ErrInvalidManifest     = errors.New("invalid module manifest")
	ErrDuplicateModule     = errors.New("duplicate module")
	ErrInvalidConstraint   = errors.New("invalid version constraint")
	ErrCoreModuleDisabled  = errors.New("core module cannot be disabled")
	ErrIncompatibleModule  = errors.New("incompatible module")
	ErrDuplicateCapability = errors.New("duplicate capability")
	ErrUnmetDependency     = errors.New("unmet dependency")
	ErrModuleCycle         = errors.New("module dependency cycle")
	ErrPhase               = errors.New("module lifecycle failure")
)

type (
	// ManifestError reports a manifest that could not be read, decoded or
	// failed its schema.
	ManifestError struct {
		Source string
		Err    error
	}

	// DuplicateModuleError reports two manifests declaring the same name.
	DuplicateModuleError struct {
		Name    string
		Sources []string
	}

	// InvalidConstraintError names the module, manifest field and constraint
	// string that failed to parse.
	InvalidConstraintError struct {
		Module     string
		Field      string
		Constraint string
		Err        error
	}

	// CoreModuleDisabledError is returned when configuration tries to
	// disable a core module.
	CoreModuleDisabledError struct {
		Module string
	}

	// Incompatibility is one failed compatibility check.
	Incompatibility struct {
		Module     string
		Target     string // "framework" or "runtime"
		Constraint string
		Actual     string
	}

	// IncompatibleModuleError lists every module whose compatibility block
	// rejects the running framework or Go runtime.
	IncompatibleModuleError struct {
		Entries []Incompatibility
	}

	// DuplicateCapabilityError reports a capability provided by more than one
	// module.
	DuplicateCapabilityError struct {
		Capability string
		Modules    []string
	}

	// Unmet is one requirement that no loaded module satisfies.
	Unmet struct {
		Module     string
		Capability string
		Constraint string
		// Provider and Available are set when the capability exists at a
		// version outside the constraint.
		Provider  string
		Available string
	}

	// UnmetDependencyError lists every unmet requirement found in one pass.
	UnmetDependencyError struct {
		Unmet []Unmet
	}

	// ModuleCycleError names the modules of one dependency cycle. Cycle
	// starts and ends with the same module.
	ModuleCycleError struct {
		Cycle []string
	}

	// PhaseError identifies the module and lifecycle phase that aborted
	// bootstrap.
	PhaseError struct {
		Module string
		Phase  Phase
		Err    error
	}
)

func (e *ManifestError) Error() string {
	return fmt.Sprintf("module: manifest %s: %v", e.Source, e.Err)
}

func (e *ManifestError) Unwrap() []error { return []error{ErrInvalidManifest, e.Err} }

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("module: %q declared more than once (%s)", e.Name, strings.Join(e.Sources, ", "))
}

func (e *DuplicateModuleError) Unwrap() error { return ErrDuplicateModule }

func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("module: %s: invalid %s constraint %q: %v", e.Module, e.Field, e.Constraint, e.Err)
}

func (e *InvalidConstraintError) Unwrap() []error { return []error{ErrInvalidConstraint, e.Err} }

func (e *CoreModuleDisabledError) Error() string {
	return fmt.Sprintf("module: %s is a core module and cannot be disabled", e.Module)
}

func (e *CoreModuleDisabledError) Unwrap() error { return ErrCoreModuleDisabled }

func (i Incompatibility) String() string {
	return fmt.Sprintf("%s requires %s %s, running %s", i.Module, i.Target, i.Constraint, i.Actual)
}

func (e *IncompatibleModuleError) Error() string {
	parts := make([]string, len(e.Entries))
	for i, entry := range e.Entries {
		parts[i] = entry.String()
	}
	return "module: incompatible modules: " + strings.Join(parts, "; ")
}

func (e *IncompatibleModuleError) Unwrap() error { return ErrIncompatibleModule }

func (e *DuplicateCapabilityError) Error() string {
	return fmt.Sprintf("module: capability %q provided by %s", e.Capability, strings.Join(e.Modules, ", "))
}

func (e *DuplicateCapabilityError) Unwrap() error { return ErrDuplicateCapability }

func (u Unmet) String() string {
	if u.Provider == "" {
		return fmt.Sprintf("%s requires %s %s (not provided)", u.Module, u.Capability, u.Constraint)
	}
	return fmt.Sprintf("%s requires %s %s (%s provides %s)", u.Module, u.Capability, u.Constraint, u.Provider, u.Available)
}

func (e *UnmetDependencyError) Error() string {
	parts := make([]string, len(e.Unmet))
	for i, u := range e.Unmet {
		parts[i] = u.String()
	}
	return "module: unmet dependencies: " + strings.Join(parts, "; ")
}

func (e *UnmetDependencyError) Unwrap() error { return ErrUnmetDependency }

func (e *ModuleCycleError) Error() string {
	return fmt.Sprintf("module: dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

func (e *ModuleCycleError) Unwrap() error { return ErrModuleCycle }

func (e *PhaseError) Error() string {
	return fmt.Sprintf("module: %s failed during %s: %v", e.Module, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() []error { return []error{ErrPhase, e.Err} }
