// Package cli converts merged function descriptors into flag-parser
// specifications: positional-vs-flag placement, required-vs-optional,
// boolean dual-flag synthesis, list and tuple arity, per-element parse
// functions, and the global short-flag table.
package cli

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aledsdavies/funcli/pkgs/argscan"
	"github.com/aledsdavies/funcli/pkgs/errors"
	"github.com/aledsdavies/funcli/pkgs/sig"
	"github.com/aledsdavies/funcli/pkgs/types"
)

// Specs maps one function's parameters onto argscan specifications, in
// declared order. Short aliases are assigned afterwards by AssignShorts,
// which needs visibility across every registered function.
func Specs(f *sig.Function, bc *sig.BuildContext) ([]*argscan.Spec, error) {
	var specs []*argscan.Spec
	for _, p := range f.CLIParams() {
		s, err := specFor(p, bc)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

func specFor(p *sig.Param, bc *sig.BuildContext) (*argscan.Spec, error) {
	d := p.Type
	s := &argscan.Spec{
		Dest:       p.Name,
		Name:       strings.ReplaceAll(p.Name, "_", "-"),
		Required:   p.Required(),
		Default:    p.Default,
		HasDefault: p.HasDefault,
	}

	// Placement. Flag-style declarations and defaulted parameters become
	// flags; list-typed and variadic parameters are forced into flag form
	// below regardless. StrictKwonly=false places every parameter in flag
	// form, with required-ness following default presence.
	positional := bc.StrictKwonly && p.Kind == sig.PositionalOrFlag && !p.HasDefault

	switch {
	case p.Variadic && d.Kind == types.KindList:
		// Variadic of lists: a repeatable flag, one inner list per
		// occurrence.
		s.NArgs = argscan.NArgsZeroOrMore
		s.Append = true
		s.Required = false
		s.HideDefault = true
		s.Parse = listParser(d)

	case p.Variadic:
		s.NArgs = argscan.NArgsZeroOrMore
		s.Required = false
		s.HideDefault = true
		s.Parse = sliceParser(d, p.GoType)

	case d.Kind == types.KindList:
		s.NArgs = argscan.NArgsZeroOrMore
		s.Parse = listParser(d)
		if d.Elem.Kind == types.KindChoice {
			s.Choices = d.Elem.Labels()
		}

	case d.Kind == types.KindTuple:
		s.Positional = positional
		s.NArgs = len(d.Fields)
		s.Parse = tupleParser(d)
		if named := fieldNames(d); named != nil && !s.Required {
			s.Metavars = named
		}
		return finishSpec(s, p, bc), nil

	case d.Kind == types.KindBool && (p.HasDefault || p.Kind == sig.KeywordOnly):
		// Dual-flag synthesis: --name sets true, --no-name sets false, one
		// shared destination.
		s.NArgs = 0
		s.Const = true
		s.NegConst = false
		if !(bc.NoNegatedFlags && defaultsFalse(p)) {
			s.NegName = "no-" + s.Name
		}
		return finishSpec(s, p, bc), nil

	default:
		if !d.HasParser() {
			return nil, errors.New(errors.ErrSpec,
				"parameter %s has no single-token parser", p.Name)
		}
		s.Positional = positional
		s.NArgs = 1
		s.Parse = scalarParser(d)
		if d.Kind == types.KindChoice {
			s.Choices = d.Labels()
		}
		return finishSpec(s, p, bc), nil
	}

	// Only the list/variadic branches fall through to here; they are always
	// flags (rule: list-typed parameters never become bare positionals).
	s.Positional = false
	return finishSpec(s, p, bc), nil
}

func defaultsFalse(p *sig.Param) bool {
	if !p.HasDefault {
		return true
	}
	b, ok := p.Default.(bool)
	return ok && !b
}

func fieldNames(d *types.Descriptor) []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		if f.Name == "" {
			return nil
		}
		names[i] = f.Name
	}
	return names
}

func scalarParser(d *types.Descriptor) func([]string) (any, error) {
	return func(tokens []string) (any, error) {
		return d.Parse(tokens[0])
	}
}

func listParser(d *types.Descriptor) func([]string) (any, error) {
	return func(tokens []string) (any, error) {
		elems := make([]any, len(tokens))
		for i, tok := range tokens {
			v, err := d.Elem.Parse(tok)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return d.BuildList(elems), nil
	}
}

// sliceParser parses a variadic slot's tokens into the declared slice type,
// element-by-element with the element descriptor.
func sliceParser(elem *types.Descriptor, sliceType reflect.Type) func([]string) (any, error) {
	return func(tokens []string) (any, error) {
		out := reflect.MakeSlice(sliceType, len(tokens), len(tokens))
		for i, tok := range tokens {
			v, err := elem.Parse(tok)
			if err != nil {
				return nil, err
			}
			out.Index(i).Set(reflect.ValueOf(v))
		}
		return out.Interface(), nil
	}
}

func tupleParser(d *types.Descriptor) func([]string) (any, error) {
	return func(tokens []string) (any, error) {
		elems := make([]any, len(tokens))
		for i, tok := range tokens {
			v, err := d.Fields[i].Type.Parse(tok)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return d.BuildTuple(elems)
	}
}

// finishSpec attaches the help text, honoring ShowTypes and ShowDefaults.
func finishSpec(s *argscan.Spec, p *sig.Param, bc *sig.BuildContext) *argscan.Spec {
	d := p.Type
	var info []string
	if bc.ShowTypes && d.Kind != types.KindChoice {
		info = append(info, "type: "+d.Name)
	}
	if bc.ShowDefaults && p.HasDefault && !s.HideDefault {
		display := fmt.Sprintf("%v", p.Default)
		if d.Kind == types.KindChoice {
			if label, ok := d.LabelFor(p.Default); ok {
				display = label
			}
		}
		info = append(info, "default: "+display)
	}
	s.Help = p.Desc
	if len(info) > 0 {
		suffix := "(" + strings.Join(info, ", ") + ")"
		if s.Help != "" {
			s.Help += " "
		}
		s.Help += suffix
	}
	return s
}

// AssignShorts populates short aliases across every function's specs at
// once: a flag receives its first letter when no other flag (and not the
// help flag) shares it. A non-nil override table replaces auto-generation
// entirely; its entries name hyphenated flag forms, including negative
// ("no-x") forms.
func AssignShorts(groups [][]*argscan.Spec, bc *sig.BuildContext) {
	if bc.Short != nil {
		for _, specs := range groups {
			for _, s := range specs {
				if s.Positional {
					continue
				}
				s.Short = bc.Short[s.Name]
				if s.NegName != "" {
					s.NegShort = bc.Short[s.NegName]
				}
			}
		}
		return
	}

	counts := map[byte]int{'h': 1} // the help flag always claims its letter
	for _, specs := range groups {
		for _, s := range specs {
			if !s.Positional && s.Name != "" {
				counts[s.Name[0]]++
			}
		}
	}
	for _, specs := range groups {
		for _, s := range specs {
			if !s.Positional && counts[s.Name[0]] == 1 {
				s.Short = s.Name[:1]
			}
		}
	}
}
