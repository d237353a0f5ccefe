package module

import (
	"github.com/km-arc/go-kernel/framework/semver"
)

// Descriptor is a validated manifest plus where it came from. Descriptors
// are built once during discovery and never mutated afterwards.
type Descriptor struct {
	Manifest

	// Source is the manifest path, or "builtin:<name>" for compiled-in
	// manifests.
	Source string

	index     int
	version   semver.Version
	requires  []semver.Constraint
	provides  []semver.Version
	framework *semver.Constraint
	runtime   *semver.Constraint
}

// NewDescriptor validates m and parses every version and constraint in it.
func NewDescriptor(m Manifest, source string) (*Descriptor, error) {
	if err := m.Validate(); err != nil {
		return nil, &ManifestError{Source: source, Err: err}
	}

	d := &Descriptor{Manifest: m, Source: source}
	d.version = semver.MustParseVersion(m.Version)

	for _, r := range m.Requires {
		c, err := semver.ParseConstraint(r.Constraint)
		if err != nil {
			return nil, &InvalidConstraintError{Module: m.Name, Field: "requires." + r.Capability, Constraint: r.Constraint, Err: err}
		}
		d.requires = append(d.requires, c)
	}
	for _, p := range m.Provides {
		d.provides = append(d.provides, semver.MustParseVersion(p.Version))
	}

	var err error
	if d.framework, err = optionalConstraint(m.Name, "compatibility.framework", m.Compatibility.Framework); err != nil {
		return nil, err
	}
	if d.runtime, err = optionalConstraint(m.Name, "compatibility.runtime", m.Compatibility.Runtime); err != nil {
		return nil, err
	}
	return d, nil
}

func optionalConstraint(module, field, raw string) (*semver.Constraint, error) {
	if raw == "" {
		return nil, nil
	}
	c, err := semver.ParseConstraint(raw)
	if err != nil {
		return nil, &InvalidConstraintError{Module: module, Field: field, Constraint: raw, Err: err}
	}
	return &c, nil
}

// Index is the position of the module in discovery order.
func (d *Descriptor) Index() int { return d.index }

// ParsedVersion returns the module version.
func (d *Descriptor) ParsedVersion() semver.Version { return d.version }

// ProvidedVersion returns the version at which d provides capability.
func (d *Descriptor) ProvidedVersion(capability string) (semver.Version, bool) {
	for i, p := range d.Provides {
		if p.Capability == capability {
			return d.provides[i], true
		}
	}
	return semver.Version{}, false
}
