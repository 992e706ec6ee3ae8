package crudkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-crudkit/layering"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderBy sorts by one column.
type OrderBy struct {
	Column    string    `json:"column" yaml:"column"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// Header is one list column.
type Header struct {
	Column  string        `json:"column" yaml:"column"`
	Options HeaderOptions `json:"options" yaml:"options"`
}

// DefaultItemsPerPage is used when a config does not set a page size.
const DefaultItemsPerPage uint64 = 10

// InstanceConfig configures one named CRUD instance: where its data lives,
// which view is shown and how list and form are laid out. It is the value
// type of the instance store.
type InstanceConfig struct {
	APIBaseURL   string    `json:"api_base_url" yaml:"api_base_url"`
	ResourceName string    `json:"resource_name" yaml:"resource_name"`
	View         View      `json:"view" yaml:"view"`
	Headers      []Header  `json:"headers,omitempty" yaml:"headers,omitempty"`
	Elements     []Elem    `json:"elements,omitempty" yaml:"elements,omitempty"`
	OrderBy      []OrderBy `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	ItemsPerPage uint64    `json:"items_per_page,omitempty" yaml:"items_per_page,omitempty"`
	Page         uint64    `json:"page,omitempty" yaml:"page,omitempty"`
	ActiveTab    *Label    `json:"active_tab,omitempty" yaml:"active_tab,omitempty"`
}

// ParseInstanceConfigYAML decodes and validates a static instance config.
func ParseInstanceConfigYAML(data []byte) (InstanceConfig, error) {
	var cfg InstanceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return InstanceConfig{}, fmt.Errorf("crudkit: decode instance config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return InstanceConfig{}, err
	}
	return cfg, nil
}

// LoadInstanceConfigYAML reads path and parses it with ParseInstanceConfigYAML.
func LoadInstanceConfigYAML(path string) (InstanceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return InstanceConfig{}, fmt.Errorf("crudkit: read instance config %s: %w", path, err)
	}
	return ParseInstanceConfigYAML(data)
}

// WithDefaults layers c over static: values set in c win, zero values fall
// back to static, and a page size is always present.
func (c InstanceConfig) WithDefaults(static InstanceConfig) InstanceConfig {
	merged := layering.MergeLayers(c, static, InstanceConfig{ItemsPerPage: DefaultItemsPerPage})
	// A view and its id only make sense together.
	switch {
	case c.View.Kind != "":
		merged.View = layering.Clone(c.View)
	case static.View.Kind != "":
		merged.View = layering.Clone(static.View)
	default:
		merged.View = ListView()
	}
	return merged
}

// Validate checks the fields an instance cannot work without and the
// structure of its layout.
func (c InstanceConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ResourceName) == "" {
		errs = append(errs, errors.New("crudkit: instance config requires resource_name"))
	}
	if c.View.Kind != "" {
		if err := c.View.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for i, o := range c.OrderBy {
		if o.Column == "" {
			errs = append(errs, fmt.Errorf("crudkit: order_by[%d] requires a column", i))
		}
		if o.Direction != Asc && o.Direction != Desc {
			errs = append(errs, fmt.Errorf("crudkit: order_by[%d] has invalid direction %q", i, o.Direction))
		}
	}
	if err := checkStructure(c.Elements); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Equal compares the persisted forms of both configs, so a config equals its
// own JSON round trip. The instance store uses it as its change gate.
func (c InstanceConfig) Equal(other InstanceConfig) bool {
	a, errA := json.Marshal(c)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}
