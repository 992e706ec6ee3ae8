package store

import (
	"encoding/json"
	"sort"

	crudkit "github.com/goliatone/go-crudkit"
)

// Layer names used in provenance.
const (
	LayerPersisted = "persisted"
	LayerStatic    = "static"
	LayerDefault   = "default"
)

// Trace reports which layers hold a value for one config path. The first
// found layer supplied the effective value.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance is one layer's contribution to a traced path.
type Provenance struct {
	Layer      string `json:"layer"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
}

// Source is the layer that supplied the effective value, or "" when none did.
func (t Trace) Source() string {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer.Layer
		}
	}
	return ""
}

func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// ResolveInstanceWithTrace is ResolveInstance plus one trace per top-level
// config key, sorted by path.
func ResolveInstanceWithTrace(s *InstanceStore, name string, static crudkit.InstanceConfig) (crudkit.InstanceConfig, []Trace, error) {
	resolved := ResolveInstance(s, name, static)

	type layer struct {
		name     string
		snapshot string
		values   map[string]any
	}
	var layers []layer
	if dynamic, ok := s.Get(name); ok {
		values, err := configValues(dynamic)
		if err != nil {
			return resolved, nil, err
		}
		layers = append(layers, layer{name: LayerPersisted, snapshot: s.SnapshotID(), values: values})
	}
	staticValues, err := configValues(static)
	if err != nil {
		return resolved, nil, err
	}
	defaultValues, err := configValues(crudkit.InstanceConfig{ItemsPerPage: crudkit.DefaultItemsPerPage, View: crudkit.ListView()})
	if err != nil {
		return resolved, nil, err
	}
	layers = append(layers,
		layer{name: LayerStatic, values: staticValues},
		layer{name: LayerDefault, values: defaultValues},
	)

	paths := map[string]struct{}{}
	for _, l := range layers {
		for path := range l.values {
			paths[path] = struct{}{}
		}
	}
	names := make([]string, 0, len(paths))
	for path := range paths {
		names = append(names, path)
	}
	sort.Strings(names)

	traces := make([]Trace, 0, len(names))
	for _, path := range names {
		trace := Trace{Path: path}
		for _, l := range layers {
			value, ok := l.values[path]
			p := Provenance{Layer: l.name, SnapshotID: l.snapshot, Found: ok}
			if ok {
				p.Value = value
			}
			trace.Layers = append(trace.Layers, p)
		}
		traces = append(traces, trace)
	}
	return resolved, traces, nil
}

// configValues returns the non-empty top-level keys of cfg in its JSON form.
func configValues(cfg crudkit.InstanceConfig) (map[string]any, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	for key, value := range values {
		if emptyJSON(value) {
			delete(values, key)
		}
	}
	return values, nil
}

func emptyJSON(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	case []any:
		return len(v) == 0
	case map[string]any:
		for _, item := range v {
			if !emptyJSON(item) {
				return false
			}
		}
		return true
	}
	return false
}
