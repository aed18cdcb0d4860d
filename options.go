package funcli

import (
	"io"
	"os"
	"reflect"

	"github.com/aledsdavies/funcli/pkgs/types"
)

// options is folded into the immutable build context before any resolution
// starts; nothing here mutates afterwards.
type options struct {
	scope          *types.Scope
	parsers        *types.Registry
	short          map[string]string // nil: auto; non-nil: explicit table only
	strictKwonly   bool
	showTypes      bool
	showDefaults   bool
	noNegatedFlags bool

	version     string
	versionSet  bool
	versionAuto bool // error out when autodetection fails
	noVersion   bool

	args    []string
	argsSet bool
	stdout  io.Writer
	stderr  io.Writer
	exit    func(int)
}

// Option configures Run and Bind.
type Option func(*options)

func buildOptions(opts []Option) *options {
	o := &options{
		scope:        types.NewScope(),
		parsers:      types.NewRegistry(),
		strictKwonly: true,
		showDefaults: true,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		exit:         os.Exit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithScope supplies the registry in which documentation type-strings,
// enumerations, and error kinds are resolved.
func WithScope(sc *types.Scope) Option {
	return func(o *options) { o.scope = sc }
}

// WithParser registers a custom parse function for T, consulted before
// capability-inferred and built-in parsers.
func WithParser[T any](fn func(string) (T, error)) Option {
	return func(o *options) {
		o.parsers.Register(reflect.TypeFor[T](), func(s string) (any, error) {
			return fn(s)
		})
	}
}

// WithNoneParser opts into parsing the nil branch of nullable unions: fn
// must fail for every token that should not become nil.
func WithNoneParser(fn func(string) error) Option {
	return func(o *options) {
		o.parsers.RegisterNone(func(s string) (any, error) {
			if err := fn(s); err != nil {
				return nil, err
			}
			return nil, nil
		})
	}
}

// Short replaces automatic short-flag generation with an explicit table
// mapping hyphenated flag names (including "no-x" forms) to letters. An
// empty table disables short flags entirely.
func Short(table map[string]string) Option {
	return func(o *options) {
		if table == nil {
			table = map[string]string{}
		}
		o.short = table
	}
}

// StrictKwonly controls placement: true (the default) keeps positional-style
// parameters without defaults as CLI positionals; false maps every parameter
// to flag form, required when it has no default.
func StrictKwonly(v bool) Option {
	return func(o *options) { o.strictKwonly = v }
}

// ShowTypes appends each parameter's type name to its help text.
func ShowTypes(v bool) Option {
	return func(o *options) { o.showTypes = v }
}

// ShowDefaults controls whether defaults are appended to help text
// (enabled unless turned off).
func ShowDefaults(v bool) Option {
	return func(o *options) { o.showDefaults = v }
}

// NoNegatedFlags suppresses the --no-x form for boolean flags whose default
// is false.
func NoNegatedFlags(v bool) Option {
	return func(o *options) { o.noNegatedFlags = v }
}

// WithVersion sets the string reported by --version.
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = version
		o.versionSet = true
	}
}

// AutoVersion requires version autodetection from build info, failing
// construction when none is available. Without it, detection is attempted
// but a miss just omits the --version flag.
func AutoVersion() Option {
	return func(o *options) { o.versionAuto = true }
}

// NoVersion omits the --version flag.
func NoVersion() Option {
	return func(o *options) { o.noVersion = true }
}

// WithArgs overrides the parsed argument vector (default os.Args[1:]).
func WithArgs(args []string) Option {
	return func(o *options) {
		o.args = args
		o.argsSet = true
	}
}

// WithOutput redirects help and result output.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithErrOutput redirects error output.
func WithErrOutput(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithExitFunc replaces os.Exit for the clean-failure paths.
func WithExitFunc(fn func(int)) Option {
	return func(o *options) { o.exit = fn }
}
