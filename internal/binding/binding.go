// Package binding parses service credential bindings, either from a
// Cloud Foundry style VCAP_SERVICES JSON document or from a YAML file.
package binding

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Binding is one service binding with opaque credentials.
type Binding struct {
	Name        string         `json:"name" yaml:"name"`
	Label       string         `json:"label" yaml:"label"`
	Plan        string         `json:"plan,omitempty" yaml:"plan,omitempty"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Credentials map[string]any `json:"credentials" yaml:"credentials"`
}

// String returns the credential value for key, or "" when absent or not a string.
func (b Binding) String(key string) string {
	if b.Credentials == nil {
		return ""
	}
	v, ok := b.Credentials[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return s
}

// Has reports whether the credentials contain a non-empty value for key.
func (b Binding) Has(key string) bool {
	return strings.TrimSpace(b.String(key)) != ""
}

// ParseVCAP parses a VCAP_SERVICES document: an object keyed by service label,
// each holding a list of bindings. Bindings are returned sorted by label, then
// name, so selection does not depend on map iteration order.
func ParseVCAP(raw []byte) ([]Binding, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}

	var services map[string][]Binding
	if err := json.Unmarshal(raw, &services); err != nil {
		return nil, fmt.Errorf("parse VCAP_SERVICES: %w", err)
	}

	var out []Binding
	for label, list := range services {
		for _, b := range list {
			if b.Label == "" {
				b.Label = label
			}
			out = append(out, b)
		}
	}
	sortBindings(out)
	return out, nil
}

// fileFormat is the YAML layout of a bindings file.
type fileFormat struct {
	Bindings []Binding `yaml:"bindings"`
}

// ParseYAML parses a bindings file. Order is preserved as written.
func ParseYAML(raw []byte) ([]Binding, error) {
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse bindings file: %w", err)
	}
	return f.Bindings, nil
}

// LoadFile reads and parses a YAML bindings file.
func LoadFile(path string) ([]Binding, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bindings file %s: %w", path, err)
	}
	return ParseYAML(raw)
}

func sortBindings(list []Binding) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Label != list[j].Label {
			return list[i].Label < list[j].Label
		}
		return list[i].Name < list[j].Name
	})
}
