// Package invoke reassembles parsed command-line values into the argument
// list the registered function expects, calls it, and translates returned
// errors that match the function's documented error kinds into clean
// process-level failures.
package invoke

import (
	"reflect"

	"github.com/aledsdavies/funcli/pkgs/errors"
	"github.com/aledsdavies/funcli/pkgs/sig"
	"github.com/aledsdavies/funcli/pkgs/types"
)

// ExitError is the clean failure produced for a documented error: message
// only, fixed status, no diagnostics.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// Call invokes f with the parsed values, filling defaulted and private slots
// and re-expanding variadic lists into trailing arguments. A returned error
// matching the documented kind set comes back as *ExitError; any other error
// propagates unmodified.
func Call(f *sig.Function, values map[string]any, sc *types.Scope) (any, error) {
	var args []reflect.Value
	for i := range f.Params {
		p := &f.Params[i]
		if p.Variadic {
			expanded, err := variadicArgs(p, values)
			if err != nil {
				return nil, err
			}
			args = append(args, expanded...)
			continue
		}
		raw, ok := values[p.Name]
		if !ok {
			raw = p.Default
		}
		av, err := coerce(raw, p.GoType)
		if err != nil {
			return nil, errors.Wrap(errors.ErrSpec, err, "argument %s", p.Name)
		}
		args = append(args, av)
	}

	results := f.Fn.Call(args)
	value, callErr := splitResults(results)
	if callErr == nil {
		return value, nil
	}
	if len(f.Raises) > 0 && sc.MatchesDocumented(callErr, f.Raises) {
		return value, &ExitError{Code: 1, Msg: callErr.Error()}
	}
	return value, callErr
}

// variadicArgs expands the parsed value for a variadic slot back into
// individual trailing arguments.
func variadicArgs(p *sig.Param, values map[string]any) ([]reflect.Value, error) {
	raw, ok := values[p.Name]
	if !ok {
		return nil, nil
	}
	elemType := p.GoType.Elem()
	if occurrences, ok := raw.([]any); ok {
		// Repeated-flag form: each occurrence is one inner value.
		out := make([]reflect.Value, 0, len(occurrences))
		for _, occ := range occurrences {
			av, err := coerce(occ, elemType)
			if err != nil {
				return nil, errors.Wrap(errors.ErrSpec, err, "argument %s", p.Name)
			}
			out = append(out, av)
		}
		return out, nil
	}
	rv := reflect.ValueOf(raw)
	out := make([]reflect.Value, rv.Len())
	for i := range out {
		out[i] = rv.Index(i)
	}
	return out, nil
}

// coerce adapts a parsed value to the declared slot type, wrapping values
// into pointer slots and mapping nil onto nil-able zero values.
func coerce(raw any, slot reflect.Type) (reflect.Value, error) {
	if raw == nil {
		switch slot.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Interface, reflect.Map:
			return reflect.Zero(slot), nil
		}
		return reflect.Value{}, errors.New(errors.ErrSpec, "nil is not a valid %s", slot)
	}
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(slot) {
		return rv, nil
	}
	if slot.Kind() == reflect.Pointer && rv.Type().AssignableTo(slot.Elem()) {
		pv := reflect.New(slot.Elem())
		pv.Elem().Set(rv)
		return pv, nil
	}
	return reflect.Value{}, errors.New(errors.ErrSpec,
		"value of type %s is not assignable to %s", rv.Type(), slot)
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// splitResults separates a function's return values into (value, error).
// Supported shapes: none, T, error, and (T, error).
func splitResults(results []reflect.Value) (any, error) {
	if len(results) == 0 {
		return nil, nil
	}
	last := results[len(results)-1]
	if last.Type().Implements(errType) {
		var err error
		if !last.IsNil() {
			err = last.Interface().(error)
		}
		if len(results) > 1 {
			return results[0].Interface(), err
		}
		return nil, err
	}
	return results[0].Interface(), nil
}
