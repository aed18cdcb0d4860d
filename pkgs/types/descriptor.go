package types

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind discriminates the descriptor variants the resolver can produce.
type Kind int

const (
	KindScalar Kind = iota
	KindBool
	KindList
	KindTuple
	KindChoice
	KindUnion
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindChoice:
		return "choice"
	case KindUnion:
		return "union"
	case KindCustom:
		return "custom"
	}
	return "unknown"
}

// ParseFunc converts one command-line token into a typed value.
type ParseFunc func(string) (any, error)

// Field is one member of a tuple descriptor. Name is empty for unnamed
// (array-style) tuples.
type Field struct {
	Name string
	Type *Descriptor
}

// Choice is one member of an enumerated descriptor. Declaration order of
// choices is preserved everywhere: help text and error messages list labels
// in the order they were registered.
type Choice struct {
	Label string
	Value any
}

// Descriptor is the canonical internal representation of a parameter type.
// Descriptors are created fresh per resolution call and are immutable once
// built.
type Descriptor struct {
	Kind     Kind
	Name     string       // display name used in help and error text
	Go       reflect.Type // concrete Go type parsed values are delivered as
	Elem     *Descriptor  // KindList
	Fields   []Field      // KindTuple
	Choices  []Choice     // KindChoice
	Members  []*Descriptor // KindUnion, left-to-right declaration order
	Nullable bool

	parse ParseFunc
}

// Parse converts a raw token into a value of the descriptor's type. It is
// defined for every kind except List and Tuple, whose element parsing is
// driven by the mapping engine through Elem and Fields.
func (d *Descriptor) Parse(s string) (any, error) {
	if d.parse == nil {
		return nil, fmt.Errorf("type %s takes no single-token value", d.Name)
	}
	return d.parse(s)
}

// HasParser reports whether the descriptor carries a single-token parse
// function.
func (d *Descriptor) HasParser() bool {
	return d.parse != nil
}

// Labels returns the choice labels in declaration order.
func (d *Descriptor) Labels() []string {
	labels := make([]string, len(d.Choices))
	for i, c := range d.Choices {
		labels[i] = c.Label
	}
	return labels
}

// LabelFor returns the label whose value equals v, if any. Used to render
// choice defaults by label rather than by underlying value.
func (d *Descriptor) LabelFor(v any) (string, bool) {
	for _, c := range d.Choices {
		if reflect.DeepEqual(c.Value, v) {
			return c.Label, true
		}
	}
	return "", false
}

// Equal reports structural equality between two descriptors. A type supplied
// both by annotation and by documentation must satisfy Equal, or resolution
// fails.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Kind != other.Kind || d.Nullable != other.Nullable {
		return false
	}
	switch d.Kind {
	case KindList:
		return d.Elem.Equal(other.Elem)
	case KindTuple:
		if len(d.Fields) != len(other.Fields) {
			return false
		}
		// Field names are structural only when both sides carry them: a
		// documented tuple[int, int] matches an annotated named-field tuple
		// of the same shape.
		for i := range d.Fields {
			a, b := d.Fields[i], other.Fields[i]
			if a.Name != "" && b.Name != "" && a.Name != b.Name {
				return false
			}
			if !a.Type.Equal(b.Type) {
				return false
			}
		}
		return true
	case KindChoice:
		if len(d.Choices) != len(other.Choices) {
			return false
		}
		for i := range d.Choices {
			if d.Choices[i].Label != other.Choices[i].Label {
				return false
			}
		}
		return d.Go == nil || other.Go == nil || d.Go == other.Go
	case KindUnion:
		if len(d.Members) != len(other.Members) {
			return false
		}
		for i := range d.Members {
			if !d.Members[i].Equal(other.Members[i]) {
				return false
			}
		}
		return true
	default:
		// Scalar, Bool, Custom: the Go type is authoritative when both sides
		// carry one.
		if d.Go != nil && other.Go != nil {
			return d.Go == other.Go
		}
		return d.Name == other.Name
	}
}

// displayName assembles the name shown in help and error messages.
func displayName(d *Descriptor) string {
	switch d.Kind {
	case KindList:
		return "[]" + d.Elem.Name
	case KindUnion:
		parts := make([]string, len(d.Members))
		for i, m := range d.Members {
			parts[i] = m.Name
		}
		return strings.Join(parts, " or ")
	default:
		return d.Name
	}
}
