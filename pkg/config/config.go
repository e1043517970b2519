// Package config loads the server's sketch definitions and settings.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/registry"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
)

// File is a parsed configuration file.
type File struct {
	// Port is zero when the file does not set one.
	Port  int
	Specs []registry.Spec
}

// Load reads a JSON or YAML (by extension) configuration file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, sketcherr.Configf("read config %s: %v", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(raw)
	default:
		return ParseJSON(raw)
	}
}

// ParseJSON parses a JSON configuration document.
func ParseJSON(raw []byte) (*File, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, sketcherr.Configf("parse config: %v", err)
	}
	return parse(doc)
}

// ParseYAML parses a YAML configuration document.
func ParseYAML(raw []byte) (*File, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, sketcherr.Configf("parse config: %v", err)
	}
	return parse(doc)
}

// parse accepts either a list of sketch definitions, or an object whose
// "port" key sets the port, "sketches*" keys hold lists of definitions and
// "set*" keys hold groups of names sharing k, family and type.
func parse(doc interface{}) (*File, error) {
	f := &File{}
	switch v := doc.(type) {
	case []interface{}:
		specs, err := specList("config", v)
		if err != nil {
			return nil, err
		}
		f.Specs = specs
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			lower := strings.ToLower(key)
			switch {
			case lower == "port":
				port, err := toInt(key, v[key])
				if err != nil {
					return nil, err
				}
				f.Port = port
			case strings.HasPrefix(lower, "sketches"):
				list, ok := v[key].([]interface{})
				if !ok {
					return nil, sketcherr.Configf("%s: expected a list of sketches", key)
				}
				specs, err := specList(key, list)
				if err != nil {
					return nil, err
				}
				f.Specs = append(f.Specs, specs...)
			case strings.HasPrefix(lower, "set"):
				specs, err := specSet(key, v[key])
				if err != nil {
					return nil, err
				}
				f.Specs = append(f.Specs, specs...)
			}
		}
	default:
		return nil, sketcherr.Configf("config must be a list or an object")
	}
	for _, s := range f.Specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func specList(where string, list []interface{}) ([]registry.Spec, error) {
	out := make([]registry.Spec, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, sketcherr.Configf("%s[%d]: expected an object", where, i)
		}
		name, _ := m["name"].(string)
		s, err := specFields(name, m)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", where, i)
		}
		if t, ok := m["type"]; ok && t != nil {
			vt, err := valueType(t)
			if err != nil {
				return nil, errors.Wrapf(err, "%s[%d]", where, i)
			}
			s.ValueType = vt
		}
		out = append(out, s)
	}
	return out, nil
}

func specSet(key string, raw interface{}) ([]registry.Spec, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, sketcherr.Configf("%s: expected an object", key)
	}
	for _, field := range []string{"k", "family"} {
		if _, ok := m[field]; !ok {
			return nil, sketcherr.Configf("%s: missing field %q", key, field)
		}
	}
	tmpl, err := specFields("", m)
	if err != nil {
		return nil, errors.Wrap(err, key)
	}
	if tmpl.Family.IsDistinctCounting() {
		t, ok := m["type"]
		if !ok {
			return nil, sketcherr.Configf("%s: missing field %q", key, "type")
		}
		if tmpl.ValueType, err = valueType(t); err != nil {
			return nil, errors.Wrap(err, key)
		}
	}
	names, ok := m["names"].([]interface{})
	if !ok {
		return nil, sketcherr.Configf("%s: expected a list of names", key)
	}
	out := make([]registry.Spec, 0, len(names))
	for i, n := range names {
		name, ok := n.(string)
		if !ok {
			return nil, sketcherr.Configf("%s.names[%d]: expected a string", key, i)
		}
		s := tmpl
		s.Name = name
		out = append(out, s)
	}
	return out, nil
}

func specFields(name string, m map[string]interface{}) (registry.Spec, error) {
	s := registry.Spec{Name: name}
	if raw, ok := m["k"]; ok {
		k, err := toInt("k", raw)
		if err != nil {
			return s, err
		}
		s.K = k
	}
	if raw, ok := m["family"]; ok {
		fam, _ := raw.(string)
		f, ok := sketches.ParseFamily(fam)
		if !ok {
			return s, sketcherr.Configf("unknown sketch family %v", raw)
		}
		s.Family = f
	}
	return s, nil
}

func valueType(raw interface{}) (sketches.ValueType, error) {
	name, _ := raw.(string)
	vt, ok := sketches.ParseValueType(name)
	if !ok {
		return 0, sketcherr.Configf("unknown value type %v", raw)
	}
	return vt, nil
}

func toInt(field string, raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, sketcherr.Configf("%s: expected an integer, got %v", field, raw)
}
