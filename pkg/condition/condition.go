// Package condition describes the filter conditions sent to a REST data
// provider: nested All/Any groups of column clauses.
package condition

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCondition = errors.New("condition: invalid condition")

// Operator compares a column against a clause value.
type Operator string

const (
	Equal          Operator = "="
	NotEqual       Operator = "!="
	Less           Operator = "<"
	LessOrEqual    Operator = "<="
	Greater        Operator = ">"
	GreaterOrEqual Operator = ">="
	IsIn           Operator = "IN"
	IsNotIn        Operator = "NOT IN"
)

// Combinator joins the elements of a Condition.
type Combinator string

const (
	All Combinator = "All"
	Any Combinator = "Any"
)

// Condition is a group of elements joined by All or Any.
type Condition struct {
	Combinator Combinator `json:"combinator"`
	Elements   []Element  `json:"elements"`
}

// Element is either a Clause or a nested Condition. Exactly one is set.
type Element struct {
	Clause    *Clause    `json:"clause,omitempty"`
	Condition *Condition `json:"condition,omitempty"`
}

// Clause compares one column.
type Clause struct {
	Column   string   `json:"column_name"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
}

// AllOf builds an All condition from clauses.
func AllOf(clauses ...Clause) Condition {
	return group(All, clauses)
}

// AnyOf builds an Any condition from clauses.
func AnyOf(clauses ...Clause) Condition {
	return group(Any, clauses)
}

func group(combinator Combinator, clauses []Clause) Condition {
	elements := make([]Element, 0, len(clauses))
	for i := range clauses {
		clause := clauses[i]
		elements = append(elements, Element{Clause: &clause})
	}
	return Condition{Combinator: combinator, Elements: elements}
}

// Eq is shorthand for an Equal clause.
func Eq(column string, value Value) Clause {
	return Clause{Column: column, Operator: Equal, Value: value}
}

// Validate checks the structural invariants of c.
func (c Condition) Validate() error {
	if c.Combinator != All && c.Combinator != Any {
		return fmt.Errorf("%w: unknown combinator %q", ErrInvalidCondition, c.Combinator)
	}
	for i, element := range c.Elements {
		switch {
		case element.Clause != nil && element.Condition != nil:
			return fmt.Errorf("%w: element %d sets both clause and condition", ErrInvalidCondition, i)
		case element.Clause != nil:
			if strings.TrimSpace(element.Clause.Column) == "" {
				return fmt.Errorf("%w: element %d has no column", ErrInvalidCondition, i)
			}
		case element.Condition != nil:
			if err := element.Condition.Validate(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: element %d is empty", ErrInvalidCondition, i)
		}
	}
	return nil
}

// Matcher resolves a column of some row to a clause value.
type Matcher func(column string) (Value, bool)

// Matches evaluates c against a row. Unknown columns never match.
func (c Condition) Matches(row Matcher) bool {
	if len(c.Elements) == 0 {
		return true
	}
	for _, element := range c.Elements {
		ok := element.matches(row)
		if c.Combinator == Any && ok {
			return true
		}
		if c.Combinator != Any && !ok {
			return false
		}
	}
	return c.Combinator != Any
}

func (e Element) matches(row Matcher) bool {
	if e.Condition != nil {
		return e.Condition.Matches(row)
	}
	if e.Clause == nil {
		return false
	}
	actual, ok := row(e.Clause.Column)
	if !ok {
		return false
	}
	return e.Clause.Value.compare(e.Clause.Operator, actual)
}

func (c Condition) String() string {
	parts := make([]string, 0, len(c.Elements))
	for _, element := range c.Elements {
		switch {
		case element.Clause != nil:
			parts = append(parts, fmt.Sprintf("%s %s %s", element.Clause.Column, element.Clause.Operator, element.Clause.Value))
		case element.Condition != nil:
			parts = append(parts, "("+element.Condition.String()+")")
		}
	}
	sep := " AND "
	if c.Combinator == Any {
		sep = " OR "
	}
	return strings.Join(parts, sep)
}

// MarshalJSON keeps the element encoding compact.
func (e Element) MarshalJSON() ([]byte, error) {
	switch {
	case e.Clause != nil:
		return json.Marshal(map[string]any{"Clause": e.Clause})
	case e.Condition != nil:
		return json.Marshal(map[string]any{"Condition": e.Condition})
	default:
		return nil, fmt.Errorf("%w: empty element", ErrInvalidCondition)
	}
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var raw struct {
		Clause    *Clause    `json:"Clause"`
		Condition *Condition `json:"Condition"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Clause = raw.Clause
	e.Condition = raw.Condition
	return nil
}
