package rules

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a custom rule file.
//
//	rules:
//	  - id: internal_api_probe
//	    severity: medium
//	    confidence: 70
//	    category: reconnaissance
//	    patterns: ['/internal/v\d+/']
type File struct {
	Rules []Definition `yaml:"rules"`
}

// Load decodes rule definitions from YAML. Unknown keys are rejected so a typo in
// a rule file does not silently change detection behavior.
func Load(r io.Reader) ([]Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return f.Rules, nil
}

// LoadFile reads rule definitions from a YAML file.
func LoadFile(path string) ([]Definition, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule file: %w", err)
	}
	defer fh.Close()

	defs, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Merge overlays custom definitions on base. A custom rule whose ID exists in base
// replaces it in place; new IDs are appended in the order given.
func Merge(base, custom []Definition) []Definition {
	out := make([]Definition, len(base), len(base)+len(custom))
	copy(out, base)
	pos := make(map[string]int, len(out))
	for i, d := range out {
		pos[d.ID] = i
	}
	for _, d := range custom {
		if i, ok := pos[d.ID]; ok {
			out[i] = d
			continue
		}
		pos[d.ID] = len(out)
		out = append(out, d)
	}
	return out
}

// LoadCatalog builds a catalog from the built-in rules overlaid with the rule files
// in paths.
func LoadCatalog(paths ...string) (*Catalog, error) {
	defs := Builtin()
	for _, p := range paths {
		custom, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		defs = Merge(defs, custom)
	}
	return NewCatalog(defs)
}
