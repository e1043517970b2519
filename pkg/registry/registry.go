// Package registry holds the fixed set of named sketches built at startup.
package registry

import (
	"sort"
	"strings"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
)

// Spec describes one sketch to create.
type Spec struct {
	Name      string             `json:"name" yaml:"name"`
	Family    sketches.Family    `json:"family" yaml:"family"`
	ValueType sketches.ValueType `json:"type,omitempty" yaml:"type,omitempty"`
	K         int                `json:"k" yaml:"k"`
}

// Validate checks a single spec in isolation.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return sketcherr.Configf("sketch name must not be empty")
	}
	if !s.Family.Valid() {
		return sketcherr.Configf("sketch %q: missing or unknown family", s.Name)
	}
	if s.Family.IsDistinctCounting() && s.ValueType == sketches.NoValueType {
		return sketcherr.Configf("sketch %q: %s sketches require a value type", s.Name, s.Family)
	}
	if !s.Family.IsDistinctCounting() && s.ValueType != sketches.NoValueType {
		return sketcherr.Configf("sketch %q: %s sketches do not take a value type", s.Name, s.Family)
	}
	if err := s.Family.CheckK(s.K); err != nil {
		return sketcherr.Configf("sketch %q: %v", s.Name, err)
	}
	return nil
}

// Info is the public identity of an entry.
type Info struct {
	Name      string             `json:"name"`
	Family    sketches.Family    `json:"family"`
	ValueType sketches.ValueType `json:"type,omitempty"`
	K         int                `json:"k"`
}

// Registry maps names to entries. Its key set never changes after New.
type Registry struct {
	entries map[string]*Entry
	names   []string
}

// New builds a registry from specs. Either every spec is valid and unique and
// every entry is created, or nothing is and a config error is returned.
func New(specs []Spec, opts ...Option) (*Registry, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	r := &Registry{entries: make(map[string]*Entry, len(specs))}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.entries[s.Name]; dup {
			return nil, sketcherr.Configf("duplicate sketch name %q", s.Name)
		}
		sk, err := s.Family.New(s.K)
		if err != nil {
			return nil, sketcherr.Configf("sketch %q: %v", s.Name, err)
		}
		r.entries[s.Name] = &Entry{
			name:      s.Name,
			family:    s.Family,
			valueType: s.ValueType,
			configK:   s.K,
			sketch:    sk,
			observe:   o.lockWait,
		}
		r.names = append(r.names, s.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup returns the entry called name.
func (r *Registry) Lookup(name string) (*Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, sketcherr.NotFoundf("no sketch named %q", name)
	}
	return e, nil
}

// Contains reports whether name is registered.
func (r *Registry) Contains(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// List returns every entry's identity, sorted by name.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.entries[n].Info())
	}
	return out
}
