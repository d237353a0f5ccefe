package module

import (
	"io/fs"
	"path/filepath"
	"slices"
)

// Discover returns the descriptors of every module visible through opts:
// compiled-in manifests first, in the given order, then manifest files
// found under each path in lexical walk order. Disabled modules are left
// out; disabling a core module is an error.
func Discover(opts Options) ([]*Descriptor, error) {
	var (
		out    []*Descriptor
		byName = make(map[string]*Descriptor)
	)
	add := func(m Manifest, source string) error {
		d, err := NewDescriptor(m, source)
		if err != nil {
			return err
		}
		if prev, ok := byName[d.Name]; ok {
			return &DuplicateModuleError{Name: d.Name, Sources: []string{prev.Source, d.Source}}
		}
		d.index = len(out)
		byName[d.Name] = d
		out = append(out, d)
		return nil
	}

	for _, m := range opts.Manifests {
		if err := add(m, "builtin:"+m.Name); err != nil {
			return nil, err
		}
	}

	for _, root := range opts.Paths {
		files, err := findManifests(root)
		if err != nil {
			return nil, &ManifestError{Source: root, Err: err}
		}
		for _, path := range files {
			m, err := LoadManifest(path)
			if err != nil {
				return nil, err
			}
			if err := add(m, path); err != nil {
				return nil, err
			}
		}
	}

	if len(opts.Disabled) == 0 {
		return out, nil
	}
	kept := out[:0]
	for _, d := range out {
		if !slices.Contains(opts.Disabled, d.Name) {
			kept = append(kept, d)
			continue
		}
		if d.Core {
			return nil, &CoreModuleDisabledError{Module: d.Name}
		}
	}
	for i, d := range kept {
		d.index = i
	}
	return kept, nil
}

// findManifests walks root and returns every recognised manifest file.
func findManifests(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := manifestFiles[d.Name()]; ok {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
