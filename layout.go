package crudkit

import "fmt"

// FieldMode controls how a field is rendered.
type FieldMode string

const (
	FieldModeDisplay  FieldMode = "Display"
	FieldModeReadable FieldMode = "Readable"
	FieldModeEditable FieldMode = "Editable"
)

// Variant is the visual emphasis of a control.
type Variant string

const (
	VariantDefault   Variant = "Default"
	VariantPrimary   Variant = "Primary"
	VariantSecondary Variant = "Secondary"
	VariantSuccess   Variant = "Success"
	VariantInfo      Variant = "Info"
	VariantWarn      Variant = "Warn"
	VariantDanger    Variant = "Danger"
)

// DateTimeDisplay selects how timestamps are shown.
type DateTimeDisplay string

const (
	DateTimeIsoUTC         DateTimeDisplay = "IsoUtc"
	DateTimeLocalizedLocal DateTimeDisplay = "LocalizedLocal"
)

// OrDefault returns LocalizedLocal for the zero value.
func (d DateTimeDisplay) OrDefault() DateTimeDisplay {
	if d == "" {
		return DateTimeLocalizedLocal
	}
	return d
}

// Label is a display name.
type Label struct {
	Name string `json:"name" yaml:"name"`
}

func NewLabel(name string) *Label { return &Label{Name: name} }

// FieldOptions configures one field element. Rule is an optional boolean
// expression that must hold for the field value before a save.
type FieldOptions struct {
	Disabled        bool            `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Label           *Label          `json:"label,omitempty" yaml:"label,omitempty"`
	DateTimeDisplay DateTimeDisplay `json:"date_time_display,omitempty" yaml:"date_time_display,omitempty"`
	Rule            string          `json:"rule,omitempty" yaml:"rule,omitempty"`
}

// HeaderOptions configures one list column.
type HeaderOptions struct {
	DisplayName     string          `json:"display_name" yaml:"display_name"`
	MinWidth        bool            `json:"min_width,omitempty" yaml:"min_width,omitempty"`
	OrderingAllowed *bool           `json:"ordering_allowed,omitempty" yaml:"ordering_allowed,omitempty"`
	DateTimeDisplay DateTimeDisplay `json:"date_time_display,omitempty" yaml:"date_time_display,omitempty"`
}

// Orderable defaults to true when OrderingAllowed is unset.
func (h HeaderOptions) Orderable() bool {
	return h.OrderingAllowed == nil || *h.OrderingAllowed
}

// Layout is the column count of a group.
type Layout string

const (
	Columns1 Layout = "Columns1"
	Columns2 Layout = "Columns2"
	Columns3 Layout = "Columns3"
	Columns4 Layout = "Columns4"
)

// OrDefault returns Columns2 for the zero value.
func (l Layout) OrDefault() Layout {
	if l == "" {
		return Columns2
	}
	return l
}

// Columns returns the numeric column count.
func (l Layout) Columns() int {
	switch l.OrDefault() {
	case Columns1:
		return 1
	case Columns3:
		return 3
	case Columns4:
		return 4
	default:
		return 2
	}
}

// Group lays out child elements in columns.
type Group struct {
	Layout   Layout `json:"layout,omitempty" yaml:"layout,omitempty"`
	Children []Elem `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tab is one labelled page of a tabs enclosing.
type Tab struct {
	Label Label `json:"label" yaml:"label"`
	Group Group `json:"group" yaml:"group"`
}

// EnclosingKind selects how an enclosing wraps its content.
type EnclosingKind string

const (
	EnclosingNone EnclosingKind = "None"
	EnclosingTabs EnclosingKind = "Tabs"
	EnclosingCard EnclosingKind = "Card"
)

// Enclosing wraps a group plainly or in a card, or holds tabs.
type Enclosing struct {
	Kind  EnclosingKind `json:"kind" yaml:"kind"`
	Group *Group        `json:"group,omitempty" yaml:"group,omitempty"`
	Tabs  []Tab         `json:"tabs,omitempty" yaml:"tabs,omitempty"`
}

// FieldElem places one entity field.
type FieldElem struct {
	Name    string       `json:"name" yaml:"name"`
	Options FieldOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

// Elem is one layout element. Exactly one of Enclosing, Field or Separator
// is set.
type Elem struct {
	Enclosing *Enclosing `json:"enclosing,omitempty" yaml:"enclosing,omitempty"`
	Field     *FieldElem `json:"field,omitempty" yaml:"field,omitempty"`
	Separator bool       `json:"separator,omitempty" yaml:"separator,omitempty"`
}

// FieldElement is a shorthand for a field element.
func FieldElement(name string, options FieldOptions) Elem {
	return Elem{Field: &FieldElem{Name: name, Options: options}}
}

// WalkFields calls fn for every field element, depth first, in layout order.
func WalkFields(elems []Elem, fn func(FieldElem) error) error {
	for _, elem := range elems {
		switch {
		case elem.Field != nil:
			if err := fn(*elem.Field); err != nil {
				return err
			}
		case elem.Enclosing != nil:
			if elem.Enclosing.Group != nil {
				if err := WalkFields(elem.Enclosing.Group.Children, fn); err != nil {
					return err
				}
			}
			for _, tab := range elem.Enclosing.Tabs {
				if err := WalkFields(tab.Group.Children, fn); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// CheckElements verifies the layout structure and that every field element
// names a declared field.
func CheckElements[T any](elems []Elem, fields *FieldSet[T]) error {
	if err := checkStructure(elems); err != nil {
		return err
	}
	return WalkFields(elems, func(f FieldElem) error {
		_, err := fields.Lookup(f.Name)
		return err
	})
}

func checkStructure(elems []Elem) error {
	for i, elem := range elems {
		set := 0
		if elem.Enclosing != nil {
			set++
		}
		if elem.Field != nil {
			set++
		}
		if elem.Separator {
			set++
		}
		if set != 1 {
			return fmt.Errorf("crudkit: element %d must be exactly one of enclosing, field or separator", i)
		}
		if elem.Enclosing == nil {
			continue
		}
		switch elem.Enclosing.Kind {
		case EnclosingNone, EnclosingCard:
			if elem.Enclosing.Group == nil {
				return fmt.Errorf("crudkit: %s enclosing at element %d has no group", elem.Enclosing.Kind, i)
			}
			if err := checkStructure(elem.Enclosing.Group.Children); err != nil {
				return err
			}
		case EnclosingTabs:
			for _, tab := range elem.Enclosing.Tabs {
				if err := checkStructure(tab.Group.Children); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("crudkit: unknown enclosing kind %q at element %d", elem.Enclosing.Kind, i)
		}
	}
	return nil
}
