package crudkit

// FieldDescriptor describes one form field for renderers and tooling.
type FieldDescriptor struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Label    string `json:"label,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Rule     string `json:"rule,omitempty"`
	// Placed is false for declared fields the layout does not show.
	Placed bool `json:"placed"`
}

// DescribeFields lists the fields placed by elems in layout order, followed
// by the remaining declared fields in declaration order. Elements naming
// undeclared fields are reported as errors.
func DescribeFields[T any](fields *FieldSet[T], elems []Elem) ([]FieldDescriptor, error) {
	var out []FieldDescriptor
	seen := make(map[string]bool)
	err := WalkFields(elems, func(elem FieldElem) error {
		f, err := fields.Lookup(elem.Name)
		if err != nil {
			return err
		}
		if seen[elem.Name] {
			return nil
		}
		seen[elem.Name] = true
		d := FieldDescriptor{
			Name:     elem.Name,
			Kind:     f.Kind(),
			Label:    elem.Name,
			Disabled: elem.Options.Disabled,
			Rule:     elem.Options.Rule,
			Placed:   true,
		}
		if elem.Options.Label != nil && elem.Options.Label.Name != "" {
			d.Label = elem.Options.Label.Name
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, f := range fields.Fields() {
		if seen[f.Name()] {
			continue
		}
		out = append(out, FieldDescriptor{Name: f.Name(), Kind: f.Kind(), Label: f.Name()})
	}
	return out, nil
}
