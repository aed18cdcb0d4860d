package funcli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/aledsdavies/funcli/pkgs/argscan"
	"github.com/aledsdavies/funcli/pkgs/cli"
	"github.com/aledsdavies/funcli/pkgs/dispatch"
	"github.com/aledsdavies/funcli/pkgs/docparse"
	"github.com/aledsdavies/funcli/pkgs/errors"
	"github.com/aledsdavies/funcli/pkgs/invoke"
	"github.com/aledsdavies/funcli/pkgs/sig"
)

// Run derives a command-line interface from root and executes it against the
// argument vector. root is a *Command for a single-command program, a
// []*Command for flat subcommands, or a map[string]any whose values are any
// of the three forms, giving nested subcommands.
//
// Registration mistakes (missing documentation, conflicting types,
// unsupported signatures) panic: they are bugs in the program, not user
// input. Errors returned by the selected function exit with status 1 when
// their kind is documented in a raises section, and panic otherwise.
// Argument errors print usage and exit with status 2. The selected
// function's first return value is returned.
func Run(root any, opts ...Option) any {
	o := buildOptions(opts)
	runner, err := build(root, o)
	if err != nil {
		panic(err)
	}
	result, err := runner.Execute(argv(o))
	if err != nil {
		fail(err, o)
		return nil
	}
	return result
}

// Bind parses the argument vector like Run but returns the selected
// invocation without calling it. Registration mistakes are returned instead
// of panicking; argument errors and help output still exit.
func Bind(root any, opts ...Option) (func() (any, error), error) {
	o := buildOptions(opts)
	runner, err := build(root, o)
	if err != nil {
		return nil, err
	}
	runner.Defer = true
	result, err := runner.Execute(argv(o))
	if err != nil {
		fail(err, o)
		return func() (any, error) { return nil, err }, nil
	}
	thunk, ok := result.(dispatch.Thunk)
	if !ok {
		// Help or version output already happened.
		o.exit(0)
		return func() (any, error) { return nil, nil }, nil
	}
	return thunk, nil
}

func argv(o *options) []string {
	if o.argsSet {
		return o.args
	}
	return os.Args[1:]
}

func prog() string {
	return filepath.Base(os.Args[0])
}

func build(root any, o *options) (*dispatch.Runner, error) {
	bc := &sig.BuildContext{
		Scope:          o.scope,
		Parsers:        o.parsers,
		Short:          o.short,
		StrictKwonly:   o.strictKwonly,
		ShowTypes:      o.showTypes,
		ShowDefaults:   o.showDefaults,
		NoNegatedFlags: o.noNegatedFlags,
	}
	node, groups, err := buildTree(root, bc)
	if err != nil {
		return nil, err
	}
	cli.AssignShorts(groups, bc)
	version, err := resolveVersion(o)
	if err != nil {
		return nil, err
	}
	return dispatch.New(node, prog(), version, o.scope, o.stdout, o.stderr)
}

// buildTree turns a registration value into the dispatch tree and collects
// each leaf's flag specifications for short-letter assignment.
func buildTree(root any, bc *sig.BuildContext) (*dispatch.Node, [][]*argscan.Spec, error) {
	switch v := root.(type) {
	case *Command:
		leaf, err := buildLeaf(v, bc)
		if err != nil {
			return nil, nil, err
		}
		return leaf, [][]*argscan.Spec{leaf.Specs}, nil
	case []*Command:
		group := &dispatch.Node{}
		var groups [][]*argscan.Spec
		for _, c := range v {
			leaf, err := buildLeaf(c, bc)
			if err != nil {
				return nil, nil, err
			}
			group.Children = append(group.Children, leaf)
			groups = append(groups, leaf.Specs)
		}
		return group, groups, checkSiblings(group)
	case map[string]any:
		group := &dispatch.Node{}
		var groups [][]*argscan.Spec
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			// Map keys name their commands verbatim, so a bare function
			// value needs no derivable name of its own.
			entry := v[name]
			if c, ok := entry.(*Command); ok && c.Name == "" {
				named := *c
				named.Name = name
				entry = &named
			}
			child, childGroups, err := buildTree(entry, bc)
			if err != nil {
				return nil, nil, err
			}
			child.Name = name
			group.Children = append(group.Children, child)
			groups = append(groups, childGroups...)
		}
		return group, groups, checkSiblings(group)
	default:
		return nil, nil, errors.New(errors.ErrSpec,
			"cannot register value of type %T; want *Command, []*Command or map[string]any", root)
	}
}

func buildLeaf(c *Command, bc *sig.BuildContext) (*dispatch.Node, error) {
	name, err := commandName(c)
	if err != nil {
		return nil, err
	}
	doc, err := docparse.Parse(c.Doc, c.Dialect)
	if err != nil {
		return nil, fmt.Errorf("command %s: %w", name, err)
	}
	f, err := sig.Merge(name, c.Fn, doc, c.Defaults, bc)
	if err != nil {
		return nil, err
	}
	specs, err := cli.Specs(f, bc)
	if err != nil {
		return nil, err
	}
	return &dispatch.Node{Name: name, Summary: f.Summary, Func: f, Specs: specs}, nil
}

func checkSiblings(group *dispatch.Node) error {
	seen := make(map[string]bool, len(group.Children))
	for _, child := range group.Children {
		if seen[child.Name] {
			return errors.New(errors.ErrSpec, "duplicate command name %s", child.Name)
		}
		seen[child.Name] = true
	}
	return nil
}

// resolveVersion decides the --version string: an explicit one wins,
// otherwise the main module version from build info when it is a valid
// release semver. AutoVersion turns a detection miss into an error.
func resolveVersion(o *options) (string, error) {
	if o.noVersion {
		return "", nil
	}
	if o.versionSet {
		return o.version, nil
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		v := bi.Main.Version
		if v != "" && v != "(devel)" && semver.IsValid(v) {
			return v, nil
		}
	}
	if o.versionAuto {
		return "", errors.New(errors.ErrSpec,
			"no release version in build info; pass WithVersion")
	}
	return "", nil
}

// fail applies the exit convention to an Execute error: parse failures have
// already reported themselves, documented function errors print their
// message, anything else is a bug and propagates as a panic.
func fail(err error, o *options) {
	switch e := err.(type) {
	case *dispatch.ExitStatus:
		o.exit(e.Code)
	case *invoke.ExitError:
		fmt.Fprintln(o.stderr, e.Msg)
		o.exit(e.Code)
	default:
		if errors.IsSpecification(err) {
			panic(err)
		}
		if isUsageError(err) {
			fmt.Fprintf(o.stderr, "%s: error: %s\n", prog(), err)
			o.exit(2)
			return
		}
		panic(err)
	}
}

// isUsageError recognizes errors cobra raises for bad subcommand selection;
// everything else reaching fail came out of the user's function.
func isUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}
