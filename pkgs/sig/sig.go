// Package sig merges a Go function's reflected signature with its parsed
// documentation into one parameter model. The reflected input types act as
// the annotations; the documentation supplies parameter names (in declared
// order), descriptions, optional type-strings, keyword-only markers, and the
// documented error kinds.
package sig

import (
	"reflect"
	"strings"

	"github.com/aledsdavies/funcli/pkgs/docparse"
	"github.com/aledsdavies/funcli/pkgs/errors"
	"github.com/aledsdavies/funcli/pkgs/types"
)

// ParamKind mirrors the two declaration styles the mapping engine
// distinguishes.
type ParamKind int

const (
	PositionalOrFlag ParamKind = iota
	KeywordOnly
)

// Param is the resolved descriptor for one parameter.
type Param struct {
	Name       string
	Kind       ParamKind
	HasDefault bool
	Default    any
	Type       *types.Descriptor // nil for private parameters
	Desc       string
	Variadic   bool
	Private    bool
	GoType     reflect.Type // declared slot type ([]T for variadic slots)
}

// Required reports whether the parameter must be supplied on the command
// line. Variadic slots are never required.
func (p *Param) Required() bool {
	return !p.HasDefault && !p.Variadic
}

// Function is the fully merged descriptor for one registered function.
type Function struct {
	Name    string
	Fn      reflect.Value
	Summary string
	Params  []Param // declared order, private parameters included
	Raises  []*types.ErrorKind
}

// CLIParams returns the parameters that surface on the command line.
func (f *Function) CLIParams() []*Param {
	out := make([]*Param, 0, len(f.Params))
	for i := range f.Params {
		if !f.Params[i].Private {
			out = append(out, &f.Params[i])
		}
	}
	return out
}

// BuildContext is the immutable configuration threaded through the merger and
// the mapping engine. It is constructed once per registration call and never
// mutated afterwards.
type BuildContext struct {
	Scope          *types.Scope
	Parsers        *types.Registry
	Short          map[string]string // nil: auto-generate; empty: disabled
	StrictKwonly   bool
	ShowTypes      bool
	ShowDefaults   bool
	NoNegatedFlags bool
}

// Merge builds the Function descriptor for fn. name is the selector the
// function is registered under; doc its parsed documentation; defaults the
// per-parameter default table.
func Merge(name string, fn any, doc *docparse.Doc, defaults map[string]any, bc *BuildContext) (*Function, error) {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return nil, errors.New(errors.ErrSpec, "%s is not a function", name)
	}
	rt := rv.Type()

	if extra := len(doc.Params) - rt.NumIn(); extra > 0 {
		names := make([]string, 0, extra)
		for _, p := range doc.Params[rt.NumIn():] {
			names = append(names, p.Name)
		}
		return nil, errors.New(errors.ErrDocMismatch,
			"parameters documented for %s but not in its signature: %s",
			name, strings.Join(names, ", "))
	}

	documented := make(map[string]bool, len(doc.Params))
	for _, p := range doc.Params {
		documented[p.Name] = true
	}
	for def := range defaults {
		if !documented[def] {
			return nil, errors.New(errors.ErrDocMismatch,
				"default given for %q, which is not a documented parameter of %s", def, name)
		}
	}

	f := &Function{Name: name, Fn: rv, Summary: doc.Summary}
	for i := 0; i < rt.NumIn(); i++ {
		if i >= len(doc.Params) {
			return nil, errors.New(errors.ErrUnderspecified,
				"parameter %d of %s has no documented name", i+1, name)
		}
		dp := doc.Params[i]
		p := Param{
			Name:   dp.Name,
			Desc:   dp.Desc,
			GoType: rt.In(i),
		}
		if dp.KeywordOnly {
			p.Kind = KeywordOnly
		}
		if def, ok := defaults[dp.Name]; ok {
			p.HasDefault = true
			p.Default = def
		}
		if rt.IsVariadic() && i == rt.NumIn()-1 {
			p.Variadic = true
			if p.HasDefault {
				return nil, errors.New(errors.ErrSpec,
					"variadic parameter %s of %s cannot have a default", dp.Name, name)
			}
		}

		if strings.HasPrefix(dp.Name, "_") {
			// Private parameters never reach the CLI; they are filled from
			// their defaults, which therefore must exist.
			if !p.HasDefault {
				return nil, errors.New(errors.ErrSpec,
					"parameter %s of %s is private but has no default", dp.Name, name)
			}
			p.Private = true
			f.Params = append(f.Params, p)
			continue
		}

		annotation := p.GoType
		if p.Variadic {
			annotation = p.GoType.Elem()
		}
		desc, err := types.Resolve(dp.Type, annotation, bc.Scope, bc.Parsers)
		if err != nil {
			return nil, wrapParam(err, dp.Name, name)
		}
		if desc == nil {
			return nil, errors.New(errors.ErrUnderspecified,
				"no type found for parameter %s of %s", dp.Name, name)
		}
		p.Type = desc

		if p.HasDefault {
			if err := checkDefault(p.Default, annotation); err != nil {
				return nil, errors.Wrap(errors.ErrSpec, err,
					"default for parameter %s of %s", dp.Name, name)
			}
		}
		f.Params = append(f.Params, p)
	}

	for _, r := range doc.Raises {
		kind, ok := bc.Scope.ErrorKind(r.Kind)
		if !ok {
			return nil, errors.New(errors.ErrUnknownType,
				"unknown error kind %q documented for %s", r.Kind, name)
		}
		f.Raises = append(f.Raises, kind)
	}
	return f, nil
}

func wrapParam(err error, param, fn string) error {
	if fe, ok := err.(*errors.FuncliError); ok {
		return errors.Wrap(fe.Kind, fe.Cause, "parameter %s of %s: %s", param, fn, fe.Message)
	}
	return errors.Wrap(errors.ErrSpec, err, "parameter %s of %s", param, fn)
}

func checkDefault(def any, slot reflect.Type) error {
	if def == nil {
		switch slot.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Interface, reflect.Map:
			return nil
		}
		return errors.New(errors.ErrSpec, "nil is not a valid %s", slot)
	}
	dt := reflect.TypeOf(def)
	if dt.AssignableTo(slot) {
		return nil
	}
	// A bare T default is accepted for a *T slot.
	if slot.Kind() == reflect.Pointer && dt.AssignableTo(slot.Elem()) {
		return nil
	}
	return errors.New(errors.ErrSpec, "value of type %s is not assignable to %s", dt, slot)
}
