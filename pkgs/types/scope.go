package types

import (
	goerrors "errors"
	"reflect"
	"time"

	"github.com/aledsdavies/funcli/pkgs/errors"
)

// entry is one name registered in a scope: a plain Go type, or an enumerated
// type with its members.
type entry struct {
	name    string
	rt      reflect.Type
	choices []Choice // non-nil for enumerated registrations
}

// Scope is the registry in which documentation type-strings and documented
// error kinds are resolved. It replaces the original design's ambient
// namespace lookup: the caller states explicitly which names the declaring
// function's documentation may use.
//
// A Scope is populated before CLI construction and never mutated afterwards.
type Scope struct {
	names    map[string]*entry
	byType   map[reflect.Type]*entry
	errKinds map[string]*ErrorKind
}

// NewScope returns a scope preloaded with the built-in scalar names.
func NewScope() *Scope {
	s := &Scope{
		names:    make(map[string]*entry),
		byType:   make(map[reflect.Type]*entry),
		errKinds: make(map[string]*ErrorKind),
	}
	for name, v := range map[string]any{
		"string":   "",
		"str":      "",
		"int":      int(0),
		"int8":     int8(0),
		"int16":    int16(0),
		"int32":    int32(0),
		"int64":    int64(0),
		"uint":     uint(0),
		"uint8":    uint8(0),
		"uint16":   uint16(0),
		"uint32":   uint32(0),
		"uint64":   uint64(0),
		"byte":     byte(0),
		"rune":     rune(0),
		"float":    float64(0),
		"float32":  float32(0),
		"float64":  float64(0),
		"bool":     false,
		"duration": time.Duration(0),
		"span":     Span{},
	} {
		s.names[name] = &entry{name: name, rt: reflect.TypeOf(v)}
	}
	return s
}

// RegisterType makes a Go type resolvable by name from documentation
// type-strings. sample is any value of the type (the zero value works).
func (s *Scope) RegisterType(name string, sample any) {
	e := &entry{name: name, rt: reflect.TypeOf(sample)}
	s.names[name] = e
	s.byType[e.rt] = e
}

// RegisterChoices registers an enumerated type. Member order is preserved:
// it drives help text and error messages. All values must share one Go type.
func (s *Scope) RegisterChoices(name string, choices []Choice) {
	e := &entry{name: name, choices: choices}
	if len(choices) > 0 {
		e.rt = reflect.TypeOf(choices[0].Value)
		s.byType[e.rt] = e
	}
	s.names[name] = e
}

// RegisterLiteral registers a literal-value alias: the set of permitted
// values, labelled by their string forms, in declaration order.
func (s *Scope) RegisterLiteral(name string, values ...any) {
	choices := make([]Choice, len(values))
	for i, v := range values {
		choices[i] = Choice{Label: toLabel(v), Value: v}
	}
	// Literal aliases are looked up by name only; the underlying Go type may
	// be shared with other registrations.
	s.names[name] = &entry{name: name, choices: choices, rt: reflect.TypeOf(values[0])}
}

// lookup returns the entry for a documentation type name.
func (s *Scope) lookup(name string) (*entry, bool) {
	e, ok := s.names[name]
	return e, ok
}

// lookupType returns the entry registered for a Go type, if any.
func (s *Scope) lookupType(rt reflect.Type) (*entry, bool) {
	e, ok := s.byType[rt]
	return e, ok
}

// ErrorKind is one documented error category: a name, a matcher deciding
// whether a concrete error belongs to it, and an optional parent forming the
// explicit subtype relation used when matching documented exception sets.
type ErrorKind struct {
	Name   string
	Match  func(error) bool
	parent *ErrorKind
}

// IsA reports whether k is other or a registered subtype of other.
func (k *ErrorKind) IsA(other *ErrorKind) bool {
	for cur := k; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// RegisterErrorKind registers a documented error kind. parent names an
// already-registered kind ("" for none).
func (s *Scope) RegisterErrorKind(name string, match func(error) bool, parent string) error {
	k := &ErrorKind{Name: name, Match: match}
	if parent != "" {
		p, ok := s.errKinds[parent]
		if !ok {
			return errors.New(errors.ErrUnknownType, "unknown parent error kind %q", parent)
		}
		k.parent = p
	}
	s.errKinds[name] = k
	return nil
}

// ErrorKind resolves a documented exception-type name.
func (s *Scope) ErrorKind(name string) (*ErrorKind, bool) {
	k, ok := s.errKinds[name]
	return k, ok
}

// MatchesDocumented reports whether err belongs to any kind in documented,
// either directly or through a registered subtype.
func (s *Scope) MatchesDocumented(err error, documented []*ErrorKind) bool {
	for _, k := range s.errKinds {
		if !k.Match(err) {
			continue
		}
		for _, doc := range documented {
			if k.IsA(doc) {
				return true
			}
		}
	}
	return false
}

// MatchIs builds an ErrorKind matcher from a sentinel error.
func MatchIs(sentinel error) func(error) bool {
	return func(err error) bool { return goerrors.Is(err, sentinel) }
}

// MatchAs builds an ErrorKind matcher from an error type.
func MatchAs[E error]() func(error) bool {
	return func(err error) bool {
		var e E
		return goerrors.As(err, &e)
	}
}

// Registry holds the caller-supplied custom parse functions, consulted before
// capability-inferred and built-in parsers. It is part of the immutable build
// context; Nil entries never exist.
type Registry struct {
	parsers map[reflect.Type]ParseFunc
	none    ParseFunc // opt-in parser for the nil branch of nullable unions
}

// NewRegistry returns an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[reflect.Type]ParseFunc)}
}

// Register installs a custom parser for a Go type.
func (r *Registry) Register(rt reflect.Type, fn ParseFunc) {
	r.parsers[rt] = fn
}

// RegisterNone installs the parser for the nil branch of nullable unions.
// Without it, no token parses to nil.
func (r *Registry) RegisterNone(fn ParseFunc) {
	r.none = fn
}

func (r *Registry) lookup(rt reflect.Type) (ParseFunc, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.parsers[rt]
	return fn, ok
}

func (r *Registry) noneParser() ParseFunc {
	if r == nil {
		return nil
	}
	return r.none
}
