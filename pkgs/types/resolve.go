package types

import (
	"reflect"
	"strings"

	"github.com/aledsdavies/funcli/pkgs/errors"
)

// Resolve reconciles a documentation type-string and a Go annotation type
// into one descriptor. Either input may be absent; when both are present they
// must be structurally equal. Returns (nil, nil) when neither input carries
// usable information, leaving the underspecified-parameter decision to the
// caller.
func Resolve(expr string, rt reflect.Type, sc *Scope, reg *Registry) (*Descriptor, error) {
	var ann, doc *Descriptor
	var err error
	if rt != nil && !isEmptyInterface(rt) {
		ann, err = FromGoType(rt, sc, reg)
		if err != nil {
			return nil, err
		}
	}
	if expr != "" {
		doc, err = FromExpr(expr, sc, reg)
		if err != nil {
			return nil, err
		}
	}
	switch {
	case ann != nil && doc != nil:
		if !ann.Equal(doc) {
			// An enumeration over the annotation's own Go type narrows it
			// rather than contradicting it.
			if c := choiceRefinement(ann, doc); c != nil {
				return c, nil
			}
			return nil, errors.New(errors.ErrAmbiguousType,
				"annotation type %s conflicts with documented type %s", ann.Name, doc.Name)
		}
		return ann, nil
	case ann != nil:
		return ann, nil
	case doc != nil:
		return doc, nil
	}
	return nil, nil
}

func choiceRefinement(a, b *Descriptor) *Descriptor {
	if a.Kind == KindChoice && b.Kind != KindChoice && a.Go != nil && a.Go == b.Go {
		return a
	}
	if b.Kind == KindChoice && a.Kind != KindChoice && b.Go != nil && b.Go == a.Go {
		return b
	}
	return nil
}

func isEmptyInterface(rt reflect.Type) bool {
	return rt.Kind() == reflect.Interface && rt.NumMethod() == 0
}

// FromGoType resolves a Go annotation type into a descriptor. Parse function
// precedence: explicitly registered parser, then the TextUnmarshaler
// capability, then the built-in rules.
func FromGoType(rt reflect.Type, sc *Scope, reg *Registry) (*Descriptor, error) {
	nullable := false
	if rt.Kind() == reflect.Pointer {
		nullable = true
		rt = rt.Elem()
	}
	d, err := fromGoType(rt, sc, reg)
	if err != nil || d == nil {
		return d, err
	}
	if nullable {
		d.Nullable = true
		if d.parse != nil {
			d.parse = nullableParser(d.parse, reg.noneParser())
		}
	}
	return d, nil
}

func fromGoType(rt reflect.Type, sc *Scope, reg *Registry) (*Descriptor, error) {
	name := goTypeName(rt, sc)

	// Explicit parsers win over every automatic rule. Booleans keep their
	// kind so flag synthesis stays boolean-shaped.
	if fn, ok := reg.lookup(rt); ok {
		kind := KindCustom
		if rt.Kind() == reflect.Bool {
			kind = KindBool
		}
		return &Descriptor{Kind: kind, Name: name, Go: rt, parse: fn}, nil
	}

	// Enumerations are checked before structural rules so that enums of
	// tuple-shaped values keep choice semantics.
	if e, ok := sc.lookupType(rt); ok && e.choices != nil {
		d := &Descriptor{Kind: KindChoice, Name: e.name, Go: rt, Choices: e.choices}
		d.parse = choiceParser(d)
		return d, nil
	}

	if rt == spanType {
		return &Descriptor{Kind: KindCustom, Name: "span", Go: rt, parse: parseSpan}, nil
	}

	// The TextUnmarshaler capability outranks structural rules: types like
	// net.IP are a named slice underneath but parse as one token.
	if rt.Kind() != reflect.Bool {
		if fn, ok := textParser(rt); ok {
			return &Descriptor{Kind: KindCustom, Name: name, Go: rt, parse: fn}, nil
		}
	}

	switch rt.Kind() {
	case reflect.Bool:
		return &Descriptor{Kind: KindBool, Name: "bool", Go: rt, parse: ParseBool}, nil

	case reflect.Slice:
		elem, err := fromGoType(rt.Elem(), sc, reg)
		if err != nil {
			return nil, err
		}
		if elem == nil {
			return nil, errors.New(errors.ErrSpec, "unable to parse %s element type", rt)
		}
		d := &Descriptor{Kind: KindList, Go: rt, Elem: elem}
		d.Name = displayName(d)
		return d, nil

	case reflect.Array:
		elem, err := fromGoType(rt.Elem(), sc, reg)
		if err != nil {
			return nil, err
		}
		fields := make([]Field, rt.Len())
		for i := range fields {
			fields[i] = Field{Type: elem}
		}
		return &Descriptor{Kind: KindTuple, Name: name, Go: rt, Fields: fields}, nil
	}

	if rt.Kind() == reflect.Struct {
		fields := make([]Field, 0, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			ft, err := fromGoType(sf.Type, sc, reg)
			if err != nil {
				return nil, err
			}
			if ft == nil || !ft.HasParser() {
				return nil, errors.New(errors.ErrSpec,
					"field %s of tuple type %s has no single-token parser", sf.Name, rt)
			}
			fields = append(fields, Field{Name: strings.ToLower(sf.Name), Type: ft})
		}
		if len(fields) == 0 {
			return nil, errors.New(errors.ErrSpec, "tuple type %s has no exported fields", rt)
		}
		return &Descriptor{Kind: KindTuple, Name: name, Go: rt, Fields: fields}, nil
	}

	if fn := scalarParser(rt); fn != nil {
		return &Descriptor{Kind: KindScalar, Name: name, Go: rt, parse: fn}, nil
	}
	return nil, errors.New(errors.ErrSpec, "no parser found for type %s", rt)
}

// FromExpr resolves a documentation type-string against a scope. The grammar
// accepts built-in and registered names, "[]T" and "list[T]" sequences,
// "tuple[A, B]" tuples, "*T" optionals, and "A or B" unions, where a "nil" or
// "none" member marks the union nullable.
func FromExpr(expr string, sc *Scope, reg *Registry) (*Descriptor, error) {
	expr = strings.TrimSpace(expr)
	if parts := splitUnion(expr); len(parts) > 1 {
		return unionFromParts(expr, parts, sc, reg)
	}

	if rest, ok := strings.CutPrefix(expr, "*"); ok {
		inner, err := FromExpr(rest, sc, reg)
		if err != nil {
			return nil, err
		}
		d := *inner
		d.Nullable = true
		if d.parse != nil {
			d.parse = nullableParser(inner.parse, reg.noneParser())
		}
		return &d, nil
	}

	if rest, ok := strings.CutPrefix(expr, "[]"); ok {
		return listFromExpr(rest, sc, reg)
	}
	if rest, ok := cutBracketed(expr, "list"); ok {
		return listFromExpr(rest, sc, reg)
	}
	if rest, ok := cutBracketed(expr, "tuple"); ok {
		fields := []Field{}
		for _, part := range strings.Split(rest, ",") {
			ft, err := FromExpr(part, sc, reg)
			if err != nil {
				return nil, err
			}
			if !ft.HasParser() {
				return nil, errors.New(errors.ErrSpec,
					"tuple member %s has no single-token parser", ft.Name)
			}
			fields = append(fields, Field{Type: ft})
		}
		return &Descriptor{Kind: KindTuple, Name: expr, Fields: fields}, nil
	}

	e, ok := sc.lookup(expr)
	if !ok {
		return nil, errors.New(errors.ErrUnknownType, "could not resolve type name %q", expr)
	}
	if e.choices != nil {
		d := &Descriptor{Kind: KindChoice, Name: e.name, Go: e.rt, Choices: e.choices}
		d.parse = choiceParser(d)
		return d, nil
	}
	return fromGoType(e.rt, sc, reg)
}

func listFromExpr(elemExpr string, sc *Scope, reg *Registry) (*Descriptor, error) {
	elem, err := FromExpr(elemExpr, sc, reg)
	if err != nil {
		return nil, err
	}
	d := &Descriptor{Kind: KindList, Elem: elem}
	if elem.Go != nil {
		d.Go = reflect.SliceOf(elem.Go)
	}
	d.Name = displayName(d)
	return d, nil
}

func unionFromParts(expr string, parts []string, sc *Scope, reg *Registry) (*Descriptor, error) {
	nullable := false
	var members []*Descriptor
	for _, part := range parts {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "nil", "none":
			nullable = true
			continue
		}
		m, err := FromExpr(part, sc, reg)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	containers := 0
	for _, m := range members {
		if m.Kind == KindList || m.Kind == KindTuple {
			containers++
		}
	}
	if containers > 0 {
		// The one sanctioned exception: an optional list collapses to the
		// list itself. Every other union member set containing a collection
		// is rejected.
		if nullable && len(members) == 1 && members[0].Kind == KindList {
			d := *members[0]
			d.Nullable = true
			return &d, nil
		}
		return nil, errors.New(errors.ErrUnsupportedUnion,
			"unsupported union including container type: %s", expr)
	}

	if len(members) == 1 && nullable {
		d := *members[0]
		d.Nullable = true
		if d.parse != nil {
			d.parse = nullableParser(members[0].parse, reg.noneParser())
		}
		return &d, nil
	}

	d := &Descriptor{Kind: KindUnion, Members: members, Nullable: nullable}
	d.Name = displayName(d)
	d.parse = unionParser(d, reg.noneParser())
	return d, nil
}

// splitUnion splits an expression on top-level " or " separators. Bracketed
// element types are kept intact.
func splitUnion(expr string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i+4 <= len(expr); i++ {
		switch expr[i] {
		case '[':
			depth++
		case ']':
			depth--
		}
		if depth == 0 && expr[i:i+4] == " or " {
			parts = append(parts, strings.TrimSpace(expr[start:i]))
			start = i + 4
		}
	}
	parts = append(parts, strings.TrimSpace(expr[start:]))
	return parts
}

func cutBracketed(expr, prefix string) (string, bool) {
	if strings.HasPrefix(expr, prefix+"[") && strings.HasSuffix(expr, "]") {
		return expr[len(prefix)+1 : len(expr)-1], true
	}
	return "", false
}

// goTypeName returns the display name for a Go type: the scope registration
// name when one exists, otherwise the type's own name.
func goTypeName(rt reflect.Type, sc *Scope) string {
	if e, ok := sc.lookupType(rt); ok {
		return e.name
	}
	switch rt.Kind() {
	case reflect.String:
		if rt == reflect.TypeOf("") {
			return "string"
		}
	}
	if rt == durationType {
		return "duration"
	}
	if rt.Name() != "" {
		return rt.Name()
	}
	return rt.String()
}

// BuildList assembles a typed slice from element values.
func (d *Descriptor) BuildList(elems []any) any {
	rt := d.Go
	if rt == nil {
		rt = reflect.TypeOf([]any{})
	}
	out := reflect.MakeSlice(rt, len(elems), len(elems))
	for i, e := range elems {
		out.Index(i).Set(reflect.ValueOf(e))
	}
	return out.Interface()
}

// BuildTuple assembles a tuple value (struct or array) from per-field values,
// in field declaration order.
func (d *Descriptor) BuildTuple(elems []any) (any, error) {
	rt := d.Go
	if rt == nil {
		return nil, errors.New(errors.ErrSpec, "tuple type %s has no concrete Go type", d.Name)
	}
	if len(elems) != len(d.Fields) {
		return nil, errors.New(errors.ErrParse,
			"expected %d value(s), got %d", len(d.Fields), len(elems))
	}
	pv := reflect.New(rt).Elem()
	switch rt.Kind() {
	case reflect.Array:
		for i, e := range elems {
			pv.Index(i).Set(reflect.ValueOf(e))
		}
	case reflect.Struct:
		i := 0
		for f := 0; f < rt.NumField(); f++ {
			if !rt.Field(f).IsExported() {
				continue
			}
			pv.Field(f).Set(reflect.ValueOf(elems[i]))
			i++
		}
	default:
		return nil, errors.New(errors.ErrSpec, "tuple type %s is not a struct or array", d.Name)
	}
	return pv.Interface(), nil
}
