// Package dispatch builds the cobra command tree for one or more registered
// functions: each function gets a selector token and its own argument
// scanner; groups become nested subcommands.
package dispatch

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/funcli/pkgs/argscan"
	"github.com/aledsdavies/funcli/pkgs/errors"
	"github.com/aledsdavies/funcli/pkgs/invoke"
	"github.com/aledsdavies/funcli/pkgs/sig"
	"github.com/aledsdavies/funcli/pkgs/types"
)

// Node is one entry in the registration tree: a leaf function with its flag
// specifications, or a named group of children.
type Node struct {
	Name     string
	Summary  string
	Func     *sig.Function
	Specs    []*argscan.Spec
	Children []*Node
}

// Thunk is a bound invocation: argument parsing already happened, the call
// itself has not.
type Thunk func() (any, error)

// ExitStatus is returned for failures whose reporting has already happened
// (parse errors print their own usage); only the status code remains for the
// caller to apply.
type ExitStatus struct {
	Code int
}

func (e *ExitStatus) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Runner executes a built command tree.
type Runner struct {
	cmd    *cobra.Command
	result any

	// Defer stashes the selected invocation as a Thunk instead of
	// calling it during Execute.
	Defer bool

	scope   *types.Scope
	version string
	stdout  io.Writer
	stderr  io.Writer
}

// New assembles the runner for a registration tree. version enables the
// --version flag when non-empty. Flag-name collisions inside a leaf (a
// parameter named no_x next to a synthesized --no-x, say) surface here as
// specification errors.
func New(root *Node, prog, version string, sc *types.Scope, stdout, stderr io.Writer) (*Runner, error) {
	r := &Runner{scope: sc, version: version, stdout: stdout, stderr: stderr}

	if root.Func != nil {
		leaf, err := r.leafCommand(root, prog, prog, true)
		if err != nil {
			return nil, err
		}
		r.cmd = leaf
	} else {
		r.cmd = &cobra.Command{
			Use:           prog,
			Short:         root.Summary,
			SilenceUsage:  true,
			SilenceErrors: true,
		}
		if version != "" {
			r.cmd.Version = version
		}
		for _, child := range root.Children {
			sub, err := r.subCommand(child, prog)
			if err != nil {
				return nil, err
			}
			r.cmd.AddCommand(sub)
		}
	}
	r.cmd.SetOut(stdout)
	r.cmd.SetErr(stderr)
	return r, nil
}

func (r *Runner) subCommand(n *Node, prog string) (*cobra.Command, error) {
	path := prog + " " + n.Name
	if n.Func != nil {
		return r.leafCommand(n, path, n.Name, false)
	}
	group := &cobra.Command{
		Use:           n.Name,
		Short:         firstParagraph(n.Summary),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	for _, child := range n.Children {
		sub, err := r.subCommand(child, path)
		if err != nil {
			return nil, err
		}
		group.AddCommand(sub)
	}
	return group, nil
}

// leafCommand wires one function: flag parsing stays disabled on the cobra
// side and the remaining tokens go through the function's own scanner.
func (r *Runner) leafCommand(n *Node, path, use string, isRoot bool) (*cobra.Command, error) {
	parser := argscan.New(path, n.Summary)
	if isRoot {
		parser.Version = r.version
	}
	for _, s := range n.Specs {
		if err := parser.Add(s); err != nil {
			return nil, errors.Wrap(errors.ErrSpec, err, "command %s", path)
		}
	}

	return &cobra.Command{
		Use:                use,
		Short:              firstParagraph(n.Summary),
		Long:               n.Summary,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parser.Parse(args)
			switch {
			case err == argscan.ErrHelp:
				fmt.Fprint(r.stdout, parser.Help())
				return nil
			case err == argscan.ErrVersion:
				fmt.Fprintln(r.stdout, r.version)
				return nil
			case err != nil:
				fmt.Fprintln(r.stderr, parser.Usage())
				fmt.Fprintf(r.stderr, "%s: error: %s\n", path, userMessage(err))
				return &ExitStatus{Code: 2}
			}
			if r.Defer {
				r.result = Thunk(func() (any, error) {
					return invoke.Call(n.Func, values, r.scope)
				})
				return nil
			}
			result, err := invoke.Call(n.Func, values, r.scope)
			if err != nil {
				return err
			}
			r.result = result
			return nil
		},
	}, nil
}

// Execute parses args against the command tree and runs the selected
// function. The result is the selected function's return value.
func (r *Runner) Execute(args []string) (any, error) {
	if args == nil {
		// cobra treats a nil vector as "use os.Args[1:]".
		args = []string{}
	}
	r.cmd.SetArgs(args)
	if err := r.cmd.Execute(); err != nil {
		return nil, err
	}
	return r.result, nil
}

func userMessage(err error) string {
	if fe, ok := err.(*errors.FuncliError); ok {
		return fe.Flat()
	}
	return err.Error()
}

func firstParagraph(s string) string {
	if idx := strings.Index(s, "\n\n"); idx >= 0 {
		s = s[:idx]
	}
	return strings.ReplaceAll(s, "\n", " ")
}
