package module

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-kernel/framework/http/validation"
)

// ── Manifest ─────────────────────────────────────────────────────────────────

// Manifest is the static metadata of a module as written in module.toml,
// module.yaml or module.hcl.
type Manifest struct {
	Name          string        `toml:"name" yaml:"name"`
	Version       string        `toml:"version" yaml:"version"`
	Description   string        `toml:"description" yaml:"description"`
	Order         int           `toml:"order" yaml:"order"`
	Core          bool          `toml:"core" yaml:"core"`
	Requires      []Requirement `toml:"requires" yaml:"requires"`
	Provides      []Provision   `toml:"provides" yaml:"provides"`
	Compatibility Compatibility `toml:"compatibility" yaml:"compatibility"`
}

// Requirement asks for a capability at a version matching Constraint.
type Requirement struct {
	Capability string `toml:"capability" yaml:"capability"`
	Constraint string `toml:"constraint" yaml:"constraint"`
}

// Provision advertises a capability at a concrete version.
type Provision struct {
	Capability string `toml:"capability" yaml:"capability"`
	Version    string `toml:"version" yaml:"version"`
}

// Compatibility constrains the framework and Go runtime versions a module
// accepts. Empty fields accept anything.
type Compatibility struct {
	Framework string `toml:"framework" yaml:"framework"`
	Runtime   string `toml:"runtime" yaml:"runtime"`
}

// ── Formats ──────────────────────────────────────────────────────────────────

// Format is a manifest encoding.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
	HCL  Format = "hcl"
)

// manifestFiles are the file names discovery picks up.
var manifestFiles = map[string]Format{
	"module.toml": TOML,
	"module.yaml": YAML,
	"module.yml":  YAML,
	"module.hcl":  HCL,
}

// FormatOf returns the format of a manifest path by its extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, true
	case ".yaml", ".yml":
		return YAML, true
	case ".hcl":
		return HCL, true
	}
	return "", false
}

// LoadManifest reads and decodes one manifest file.
func LoadManifest(path string) (Manifest, error) {
	format, ok := FormatOf(path)
	if !ok {
		return Manifest{}, &ManifestError{Source: path, Err: fmt.Errorf("unsupported manifest extension %q", filepath.Ext(path))}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, &ManifestError{Source: path, Err: err}
	}
	return DecodeManifest(format, data, path)
}

// DecodeManifest decodes data strictly: unknown keys are rejected in every
// format. source is used in error messages only.
func DecodeManifest(format Format, data []byte, source string) (Manifest, error) {
	var (
		m   Manifest
		err error
	)
	switch format {
	case TOML:
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&m)
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
	case HCL:
		m, err = decodeHCL(data, source)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return Manifest{}, &ManifestError{Source: source, Err: err}
	}
	return m, nil
}

// hclManifest mirrors Manifest with requires/provides as labelled blocks:
//
//	requires "cache" { constraint = ">=1.0.0" }
//	provides "greeting" { version = "1.0.0" }
//	compatibility { framework = "^1.0.0" }
type hclManifest struct {
	Name          string          `hcl:"name"`
	Version       string          `hcl:"version"`
	Description   string          `hcl:"description,optional"`
	Order         int             `hcl:"order,optional"`
	Core          bool            `hcl:"core,optional"`
	Requires      []hclRequire    `hcl:"requires,block"`
	Provides      []hclProvide    `hcl:"provides,block"`
	Compatibility *hclCompatBlock `hcl:"compatibility,block"`
}

type hclRequire struct {
	Capability string `hcl:"capability,label"`
	Constraint string `hcl:"constraint"`
}

type hclProvide struct {
	Capability string `hcl:"capability,label"`
	Version    string `hcl:"version"`
}

type hclCompatBlock struct {
	Framework string `hcl:"framework,optional"`
	Runtime   string `hcl:"runtime,optional"`
}

func decodeHCL(data []byte, source string) (Manifest, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, source)
	if diags.HasErrors() {
		return Manifest{}, diags
	}
	var h hclManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &h); diags.HasErrors() {
		return Manifest{}, diags
	}

	m := Manifest{
		Name:        h.Name,
		Version:     h.Version,
		Description: h.Description,
		Order:       h.Order,
		Core:        h.Core,
	}
	for _, r := range h.Requires {
		m.Requires = append(m.Requires, Requirement(r))
	}
	for _, p := range h.Provides {
		m.Provides = append(m.Provides, Provision(p))
	}
	if h.Compatibility != nil {
		m.Compatibility = Compatibility(*h.Compatibility)
	}
	return m, nil
}

// ── Schema ───────────────────────────────────────────────────────────────────

// Validate checks the manifest's required fields and formats. Constraint
// strings are only checked for presence here; they are parsed when the
// descriptor is built so that malformed ones surface as
// InvalidConstraintError.
func (m Manifest) Validate() error {
	data := map[string]string{
		"name":    m.Name,
		"version": m.Version,
	}
	rules := validation.Rules{
		"name":    "required|alpha_dash|max:64",
		"version": "required|semver",
	}
	for i, r := range m.Requires {
		key := "requires." + strconv.Itoa(i)
		data[key+".capability"] = r.Capability
		data[key+".constraint"] = r.Constraint
		rules[key+".capability"] = "required|capability"
		rules[key+".constraint"] = "required"
	}
	for i, p := range m.Provides {
		key := "provides." + strconv.Itoa(i)
		data[key+".capability"] = p.Capability
		data[key+".version"] = p.Version
		rules[key+".capability"] = "required|capability"
		rules[key+".version"] = "required|semver"
	}

	v := validation.Make(data, rules)
	v.Fails()
	first := make(map[string]int, len(m.Provides))
	for i, p := range m.Provides {
		if p.Capability == "" {
			continue
		}
		j, dup := first[p.Capability]
		if !dup {
			first[p.Capability] = i
			continue
		}
		field := "provides." + strconv.Itoa(i) + ".capability"
		v.Errors().Add(field, fmt.Sprintf("The %s %q is already provided by provides.%d.", field, p.Capability, j))
	}
	return v.Err()
}
