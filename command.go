// Package funcli derives command-line interfaces from Go functions: the
// reflected signature supplies the parameter types, a documentation comment
// supplies names, descriptions and documented error kinds, and an explicit
// defaults table supplies optionality. One function becomes one command;
// collections of functions become subcommands.
package funcli

import (
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/aledsdavies/funcli/pkgs/docparse"
	"github.com/aledsdavies/funcli/pkgs/errors"
)

// Command pairs a function with its documentation and defaults. The zero
// Name derives the selector from the function's own name
// (camelCase→kebab-case).
type Command struct {
	Name     string
	Fn       any
	Doc      string
	Dialect  docparse.Dialect
	Defaults map[string]any
}

// NewCommand registers fn with its documentation comment.
func NewCommand(fn any, doc string) *Command {
	return &Command{Fn: fn, Doc: doc}
}

// Named sets an explicit selector name.
func (c *Command) Named(name string) *Command {
	c.Name = name
	return c
}

// Default declares a default value for a documented parameter, making it
// optional on the command line.
func (c *Command) Default(name string, value any) *Command {
	if c.Defaults == nil {
		c.Defaults = make(map[string]any)
	}
	c.Defaults[name] = value
	return c
}

var anonymousFunc = regexp.MustCompile(`^func\d+(\.\d+)*$`)

// commandName returns the selector for a command: the explicit name when
// given, otherwise the function's own name in kebab case.
func commandName(c *Command) (string, error) {
	if c.Name != "" {
		return c.Name, nil
	}
	rv := reflect.ValueOf(c.Fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return "", errors.New(errors.ErrSpec, "registered value is not a function")
	}
	full := runtime.FuncForPC(rv.Pointer()).Name()
	base := full[strings.LastIndex(full, ".")+1:]
	base = strings.TrimSuffix(base, "-fm")
	if base == "" || anonymousFunc.MatchString(base) {
		return "", errors.New(errors.ErrSpec,
			"cannot derive a command name for %s; set Command.Name", full)
	}
	return kebab(base), nil
}

// kebab converts CamelCase and snake_case names to hyphenated selectors.
// A run of capitals is one word: HTTPServer becomes http-server.
func kebab(name string) string {
	isLower := func(r rune) bool { return r >= 'a' && r <= 'z' }
	isUpper := func(r rune) bool { return r >= 'A' && r <= 'Z' }
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case r == '_':
			b.WriteRune('-')
		case isUpper(r):
			// A word starts here when the previous rune was lowercase, or
			// when an acronym run ends (the next rune is lowercase).
			if i > 0 && (isLower(runes[i-1]) || (i+1 < len(runes) && isLower(runes[i+1]) && isUpper(runes[i-1]))) {
				b.WriteRune('-')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
