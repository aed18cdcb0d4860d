package types

import (
	"encoding"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Span is the built-in range type: three optional integer positions split on
// ":" ("1:10:2", "::2", "1::"). Empty fragments stay nil.
type Span struct {
	Start, Stop, Step *int
}

func (s Span) String() string {
	frag := func(p *int) string {
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	}
	return frag(s.Start) + ":" + frag(s.Stop) + ":" + frag(s.Step)
}

func parseSpan(s string) (any, error) {
	frags := strings.Split(s, ":")
	if len(frags) != 3 {
		return nil, fmt.Errorf("%q is not a valid span string", s)
	}
	var out [3]*int
	for i, frag := range frags {
		if frag == "" {
			continue
		}
		n, err := strconv.Atoi(frag)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid span string", s)
		}
		out[i] = &n
	}
	return Span{Start: out[0], Stop: out[1], Step: out[2]}, nil
}

// ParseBool accepts the fixed literal sets {1,t,true} and {0,f,false},
// case-insensitively.
func ParseBool(s string) (any, error) {
	switch strings.ToLower(s) {
	case "1", "t", "true":
		return true, nil
	case "0", "f", "false":
		return false, nil
	}
	return nil, fmt.Errorf("%q is not a valid boolean string", s)
}

// scalarParser builds a parse function for a scalar Go type, converting the
// strconv result to the exact (possibly named) type.
func scalarParser(rt reflect.Type) ParseFunc {
	if rt == durationType {
		return func(s string) (any, error) {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
	}
	switch rt.Kind() {
	case reflect.String:
		return func(s string) (any, error) {
			return reflect.ValueOf(s).Convert(rt).Interface(), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(s string) (any, error) {
			n, err := strconv.ParseInt(s, 10, rt.Bits())
			if err != nil {
				return nil, fmt.Errorf("invalid %s value: %q", rt, s)
			}
			return reflect.ValueOf(n).Convert(rt).Interface(), nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(s string) (any, error) {
			n, err := strconv.ParseUint(s, 10, rt.Bits())
			if err != nil {
				return nil, fmt.Errorf("invalid %s value: %q", rt, s)
			}
			return reflect.ValueOf(n).Convert(rt).Interface(), nil
		}
	case reflect.Float32, reflect.Float64:
		return func(s string) (any, error) {
			f, err := strconv.ParseFloat(s, rt.Bits())
			if err != nil {
				return nil, fmt.Errorf("invalid %s value: %q", rt, s)
			}
			return reflect.ValueOf(f).Convert(rt).Interface(), nil
		}
	}
	return nil
}

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	spanType            = reflect.TypeOf(Span{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// textParser builds a parse function from the TextUnmarshaler capability,
// the Go form of a single-string-argument constructor.
func textParser(rt reflect.Type) (ParseFunc, bool) {
	if !reflect.PointerTo(rt).Implements(textUnmarshalerType) {
		return nil, false
	}
	return func(s string) (any, error) {
		pv := reflect.New(rt)
		if err := pv.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return nil, err
		}
		return pv.Elem().Interface(), nil
	}, true
}

// choiceParser maps labels to values and reports out-of-set labels with the
// full label list in declaration order.
func choiceParser(d *Descriptor) ParseFunc {
	return func(s string) (any, error) {
		for _, c := range d.Choices {
			if c.Label == s {
				return c.Value, nil
			}
		}
		return nil, fmt.Errorf("invalid choice: %q (choose from %s)",
			s, strings.Join(d.Labels(), ", "))
	}
}

// unionParser tries each member parser left-to-right; the first that succeeds
// wins. When a none parser is available for a nullable union it runs first,
// so that values the caller wants parsed as nil are not claimed by a later
// member.
func unionParser(d *Descriptor, none ParseFunc) ParseFunc {
	return func(s string) (any, error) {
		var suppressed []error
		if d.Nullable && none != nil {
			v, err := none(s)
			if err == nil {
				return v, nil
			}
			suppressed = append(suppressed, err)
		}
		for _, m := range d.Members {
			v, err := m.Parse(s)
			if err == nil {
				return v, nil
			}
			suppressed = append(suppressed, err)
		}
		reportSuppressed(d, s, suppressed)
		return nil, fmt.Errorf("%q could not be parsed as any of %s", s, d.Name)
	}
}

// nullableParser wraps a single-member parser for a collapsed nullable union,
// honoring an opt-in none parser first.
func nullableParser(inner ParseFunc, none ParseFunc) ParseFunc {
	if none == nil {
		return inner
	}
	return func(s string) (any, error) {
		if v, err := none(s); err == nil {
			return v, nil
		}
		return inner(s)
	}
}

// reportSuppressed surfaces swallowed union-member failures when
// FUNCLI_DEBUG is set.
func reportSuppressed(d *Descriptor, value string, suppressed []error) {
	if os.Getenv("FUNCLI_DEBUG") == "" {
		return
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	for _, err := range suppressed {
		logger.Debug("suppressed union parse failure",
			"type", d.Name, "value", value, "error", err)
	}
}

func toLabel(v any) string {
	return fmt.Sprint(v)
}
