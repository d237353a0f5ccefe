package container

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels wrapped by the typed errors below, for errors.Is checks.
var (
	ErrMissingService        = errors.New("missing service")
	ErrCircularDependency    = errors.New("circular dependency")
	ErrUnresolvableParameter = errors.New("unresolvable parameter")
	ErrContainer             = errors.New("container error")
	ErrSealed                = errors.New("container is sealed")
)

type (
	// MissingServiceError is returned when an id has no binding and is not a
	// type the container knows how to construct.
	MissingServiceError struct {
		ID string
		// Chain is the resolving stack at the time of the lookup.
		Chain []string
	}

	// CircularDependencyError is returned when an id is requested while it is
	// already being built. Chain ends with the repeated id.
	CircularDependencyError struct {
		Chain []string
	}

	// UnresolvableParameterError names a constructor parameter or injected
	// field the builder could not satisfy.
	UnresolvableParameterError struct {
		Param  string
		Owner  string
		Reason string
	}

	// ContainerError wraps a failure raised by a concrete's own construction
	// logic: an error return, a panic or a reflection failure.
	ContainerError struct {
		ID  string
		Err error
	}
)

func (e *MissingServiceError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("container: no binding registered for [%s]", e.ID)
	}
	return fmt.Sprintf("container: no binding registered for [%s] (while building %s)",
		e.ID, strings.Join(e.Chain, " -> "))
}

func (e *MissingServiceError) Unwrap() error { return ErrMissingService }

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("container: circular dependency detected: %s", strings.Join(e.Chain, " -> "))
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

func (e *UnresolvableParameterError) Error() string {
	return fmt.Sprintf("container: unresolvable parameter [%s] of %s: %s", e.Param, e.Owner, e.Reason)
}

func (e *UnresolvableParameterError) Unwrap() error { return ErrUnresolvableParameter }

func (e *ContainerError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("container: %v", e.Err)
	}
	return fmt.Sprintf("container: building [%s]: %v", e.ID, e.Err)
}

// Unwrap exposes both the ErrContainer sentinel and the underlying cause.
func (e *ContainerError) Unwrap() []error { return []error{ErrContainer, e.Err} }
