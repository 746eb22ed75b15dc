// Package registry provides the allowed-target registry for handler calls.
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Registry is an immutable set of approved call targets.
// It is safe for concurrent use once constructed.
type Registry struct {
	exact    map[string]map[string]struct{} // owner -> member
	patterns []Spec
}

// New creates a registry from the given specs.
func New(specs ...Spec) *Registry {
	r := &Registry{exact: make(map[string]map[string]struct{})}

	for _, s := range specs {
		if !s.isExact() {
			r.patterns = append(r.patterns, s)
			continue
		}
		members, ok := r.exact[s.Owner]
		if !ok {
			members = make(map[string]struct{})
			r.exact[s.Owner] = members
		}
		members[s.Member] = struct{}{}
	}

	return r
}

// Lookup reports whether member of owner is an approved target.
func (r *Registry) Lookup(owner, member string) bool {
	if r == nil {
		return false
	}

	if members, ok := r.exact[owner]; ok {
		if _, ok := members[member]; ok {
			return true
		}
	}

	for _, p := range r.patterns {
		if p.Matches(owner, member) {
			return true
		}
	}

	return false
}

// Specs returns every spec in the registry. Exact specs come first.
func (r *Registry) Specs() []Spec {
	var specs []Spec
	for owner, members := range r.exact {
		for member := range members {
			specs = append(specs, Spec{Owner: owner, Member: member})
		}
	}
	return append(specs, r.patterns...)
}

// Len returns the number of specs.
func (r *Registry) Len() int {
	n := len(r.patterns)
	for _, members := range r.exact {
		n += len(members)
	}
	return n
}

// builtinSpecs are always approved: the root constructor chain and the
// extension library that handler programs are written against.
var builtinSpecs = []string{
	"java/lang/Object.<init>",
	"net/java/btrace/BTraceUtils.*",
	"net/java/btrace/ext/**.*",
}

// Builtin returns the builtin specs.
func Builtin() []Spec {
	specs := make([]Spec, 0, len(builtinSpecs))
	for _, s := range builtinSpecs {
		specs = append(specs, MustParse(s))
	}
	return specs
}

// ParseAll parses a list of spec strings.
func ParseAll(list []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(list))
	for _, s := range list {
		spec, err := Parse(s)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// file is the on-disk registry format.
type file struct {
	Targets []string `yaml:"targets"`
}

// LoadFile reads specs from a YAML file of the form:
//
//	targets:
//	  - net/java/btrace/ext/Printer.*
//	  - com/example/Helpers.format
func LoadFile(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse registry file %s: %w", path, err)
	}

	return ParseAll(f.Targets)
}
