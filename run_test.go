package funcli

import (
	"bytes"
	goerrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/funcli/pkgs/types"
)

type runResult struct {
	value  any
	stdout string
	stderr string
	exits  []int
}

func runCLI(t *testing.T, root any, args []string, opts ...Option) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	var exits []int
	opts = append(opts,
		WithArgs(args),
		WithOutput(&stdout),
		WithErrOutput(&stderr),
		WithExitFunc(func(code int) { exits = append(exits, code) }),
		NoVersion(),
	)
	value := Run(root, opts...)
	return runResult{value: value, stdout: stdout.String(), stderr: stderr.String(), exits: exits}
}

func sumNumbers(numbers []int) int {
	total := 0
	for _, n := range numbers {
		total += n
	}
	return total
}

const sumDoc = "Add numbers.\n\n:param numbers: Values to sum."

func TestRunListFlagConsumesMultipleTokens(t *testing.T) {
	cmd := NewCommand(sumNumbers, sumDoc)
	res := runCLI(t, cmd, []string{"--numbers", "1", "2", "3"})
	assert.Empty(t, res.exits)
	assert.Equal(t, 6, res.value)
}

func TestRunRequiredListMissingIsParseError(t *testing.T) {
	cmd := NewCommand(sumNumbers, sumDoc)
	res := runCLI(t, cmd, nil)
	assert.Equal(t, []int{2}, res.exits)
	assert.Contains(t, res.stderr, "--numbers")

	// A present flag with zero tokens is the empty sequence, not an error.
	res = runCLI(t, cmd, []string{"--numbers"})
	assert.Empty(t, res.exits)
	assert.Equal(t, 0, res.value)
}

func TestRunRoundTrip(t *testing.T) {
	greet := func(greeting string, count int) string {
		return strings.Repeat(greeting, count)
	}
	doc := "Greet.\n\n:param greeting: What to say.\n:key count: Repetitions."
	cmd := NewCommand(greet, doc).Named("greet").Default("count", 1)

	res := runCLI(t, cmd, []string{"hello", "--count", "2"})
	assert.Equal(t, greet("hello", 2), res.value)

	res = runCLI(t, cmd, []string{"hello"})
	assert.Equal(t, greet("hello", 1), res.value)
}

func TestRunBooleanDualFlags(t *testing.T) {
	fn := func(loud bool) bool { return loud }
	doc := "Report loudness.\n\n:key loud: Volume."
	cmd := NewCommand(fn, doc).Named("loudness").Default("loud", false)

	res := runCLI(t, cmd, []string{"--loud"})
	assert.Equal(t, true, res.value)
	res = runCLI(t, cmd, []string{"--no-loud"})
	assert.Equal(t, false, res.value)
	res = runCLI(t, cmd, nil)
	assert.Equal(t, false, res.value)
}

func TestRunChoiceRejection(t *testing.T) {
	sc := types.NewScope()
	sc.RegisterLiteral("fruit", "apple", "banana", "cherry")

	fn := func(pick string) string { return pick }
	doc := "Pick fruit.\n\n:param fruit pick: One of the known fruits."
	cmd := NewCommand(fn, doc).Named("pick")

	res := runCLI(t, cmd, []string{"mango"}, WithScope(sc))
	assert.Equal(t, []int{2}, res.exits)
	assert.Contains(t, res.stderr, `invalid choice: "mango" (choose from apple, banana, cherry)`)
}

func TestRunStrictKwonlyPlacement(t *testing.T) {
	fn := func(src string, dst string) string { return src + "->" + dst }
	doc := "Move.\n\n:param src: From.\n:param dst: To."
	cmd := NewCommand(fn, doc).Named("move").Default("dst", "trash")

	// src is positional, dst is a flag with a default.
	res := runCLI(t, cmd, []string{"in.txt"})
	assert.Equal(t, "in.txt->trash", res.value)
	res = runCLI(t, cmd, []string{"in.txt", "--dst", "out.txt"})
	assert.Equal(t, "in.txt->out.txt", res.value)
}

func TestRunAllFlagsMode(t *testing.T) {
	fn := func(src string, dst string) string { return src + "->" + dst }
	doc := "Move.\n\n:param src: From.\n:param dst: To."
	cmd := NewCommand(fn, doc).Named("move").Default("dst", "trash")

	res := runCLI(t, cmd, []string{"--src", "in.txt"}, StrictKwonly(false))
	assert.Equal(t, "in.txt->trash", res.value)

	// Without a default the flag is required.
	res = runCLI(t, cmd, nil, StrictKwonly(false))
	assert.Equal(t, []int{2}, res.exits)
	assert.Contains(t, res.stderr, "--src")
}

func TestRunShortFlags(t *testing.T) {
	fn := func(count int, color string) string { return strings.Repeat(color, count) }
	doc := "Paint.\n\n:param count: Layers.\n:param color: Shade."
	cmd := NewCommand(fn, doc).Named("paint").Default("count", 1).Default("color", "red")

	// count and color collide on c, so neither gets a short letter.
	res := runCLI(t, cmd, []string{"-c", "2"})
	assert.Equal(t, []int{2}, res.exits)

	res = runCLI(t, cmd, []string{"--count", "2", "--color", "ab"})
	assert.Equal(t, "abab", res.value)

	// An explicit table overrides auto-generation.
	res = runCLI(t, cmd, []string{"-k", "2", "--color", "x"}, Short(map[string]string{"count": "k"}))
	assert.Equal(t, "xx", res.value)
}

func TestRunDocumentedErrorExitsOne(t *testing.T) {
	sc := types.NewScope()
	sentinel := goerrors.New("no such user")
	require.NoError(t, sc.RegisterErrorKind("NotFound", types.MatchIs(sentinel), ""))

	fn := func(id string) error {
		return fmt.Errorf("user %s: %w", id, sentinel)
	}
	doc := "Fetch a user.\n\n:param id: Who.\n:raises NotFound: If absent."
	cmd := NewCommand(fn, doc).Named("fetch")

	res := runCLI(t, cmd, []string{"amy"}, WithScope(sc))
	assert.Equal(t, []int{1}, res.exits)
	assert.Equal(t, "user amy: no such user\n", res.stderr)
}

func TestRunUndocumentedErrorPanics(t *testing.T) {
	fn := func(id string) error { return goerrors.New("wires crossed") }
	doc := "Fetch.\n\n:param id: Who."
	cmd := NewCommand(fn, doc).Named("fetch")

	assert.Panics(t, func() {
		runCLI(t, cmd, []string{"amy"})
	})
}

func TestRunSpecificationErrorPanics(t *testing.T) {
	fn := func(mystery any) {}
	doc := "Go.\n\n:param mystery: Untyped."
	assert.Panics(t, func() {
		runCLI(t, NewCommand(fn, doc).Named("go"), nil)
	})
}

func TestRunTupleArity(t *testing.T) {
	type point struct {
		X int
		Y int
	}
	fn := func(at point) string { return fmt.Sprintf("%d,%d", at.X, at.Y) }
	doc := "Plot.\n\n:param at: Where."
	cmd := NewCommand(fn, doc).Named("plot")

	res := runCLI(t, cmd, []string{"3", "4"})
	assert.Equal(t, "3,4", res.value)

	res = runCLI(t, cmd, []string{"3"})
	assert.Equal(t, []int{2}, res.exits)
	assert.Contains(t, res.stderr, "expected 2 argument(s)")

	// An inline value on the flag form is one token; the arity check must
	// reject it rather than let the field builder run short.
	withDefault := NewCommand(fn, doc).Named("plot").Default("at", point{X: 1, Y: 2})
	res = runCLI(t, withDefault, []string{"--at=3"})
	assert.Equal(t, []int{2}, res.exits)
	assert.Contains(t, res.stderr, "expected 2 argument(s)")
}

func TestRunSubcommandMap(t *testing.T) {
	root := map[string]any{
		"sum": NewCommand(sumNumbers, sumDoc),
		"text": map[string]any{
			"upper": NewCommand(func(s string) string { return strings.ToUpper(s) },
				"Uppercase.\n\n:param s: Input."),
		},
	}

	res := runCLI(t, root, []string{"sum", "--numbers", "2", "3"})
	assert.Equal(t, 5, res.value)

	res = runCLI(t, root, []string{"text", "upper", "hi"})
	assert.Equal(t, "HI", res.value)

	res = runCLI(t, root, []string{"nonsense"})
	assert.Equal(t, []int{2}, res.exits)
}

func TestRunCommandSlice(t *testing.T) {
	root := []*Command{
		NewCommand(sumNumbers, sumDoc).Named("sum"),
		NewCommand(func(s string) string { return s + s }, "Double.\n\n:param s: Input.").Named("double"),
	}

	res := runCLI(t, root, []string{"double", "ha"})
	assert.Equal(t, "haha", res.value)
}

func TestRunHelpOutput(t *testing.T) {
	fn := func(depth int) int { return depth }
	doc := "Dig a hole.\n\n:param depth: How deep."
	cmd := NewCommand(fn, doc).Named("dig").Default("depth", 1)

	res := runCLI(t, cmd, []string{"--help"}, ShowTypes(true))
	assert.Empty(t, res.exits)
	assert.Contains(t, res.stdout, "Dig a hole.")
	assert.Contains(t, res.stdout, "--depth")
	assert.Contains(t, res.stdout, "(type: int, default: 1)")
}

func TestRunVersionFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := NewCommand(sumNumbers, sumDoc)
	Run(cmd,
		WithArgs([]string{"--version"}),
		WithOutput(&stdout),
		WithErrOutput(&stderr),
		WithExitFunc(func(int) {}),
		WithVersion("9.9.9"),
	)
	assert.Equal(t, "9.9.9\n", stdout.String())
}

func TestRunUnionParameter(t *testing.T) {
	fn := func(limit any) string { return fmt.Sprintf("%T:%v", limit, limit) }
	doc := "Limit.\n\n:param int or string limit: Threshold or preset name."
	cmd := NewCommand(fn, doc).Named("limit")

	res := runCLI(t, cmd, []string{"10"})
	assert.Equal(t, "int:10", res.value)
	res = runCLI(t, cmd, []string{"max"})
	assert.Equal(t, "string:max", res.value)
}

func TestRunCustomParser(t *testing.T) {
	type shout string
	fn := func(word shout) string { return string(word) }
	doc := "Shout.\n\n:param word: What."
	cmd := NewCommand(fn, doc).Named("shout")

	res := runCLI(t, cmd, []string{"hey"}, WithParser(func(s string) (shout, error) {
		return shout(strings.ToUpper(s) + "!"), nil
	}))
	assert.Equal(t, "HEY!", res.value)
}

func TestBindDefersInvocation(t *testing.T) {
	called := false
	fn := func(n int) int { called = true; return n * 2 }
	doc := "Double.\n\n:param n: Value."

	thunk, err := Bind(NewCommand(fn, doc).Named("double"),
		WithArgs([]string{"21"}),
		WithExitFunc(func(int) {}),
		NoVersion(),
	)
	require.NoError(t, err)
	assert.False(t, called)

	v, err := thunk()
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 42, v)
}

func TestBindReportsFlagCollision(t *testing.T) {
	// A parameter named no_loud claims the same flag the boolean pair for
	// loud synthesizes; Bind returns that instead of panicking.
	fn := func(loud bool, noLoud string) string { return noLoud }
	doc := "Shout.\n\n:key loud: Volume.\n:key no_loud: Override."
	cmd := NewCommand(fn, doc).Named("shout").Default("loud", false)

	_, err := Bind(cmd, WithArgs(nil), WithExitFunc(func(int) {}), NoVersion())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate flag --no-loud")
}

func TestBindReturnsSpecificationErrors(t *testing.T) {
	fn := func(x any) {}
	doc := "Go.\n\n:param x: Untyped."
	_, err := Bind(NewCommand(fn, doc).Named("go"), WithArgs(nil), WithExitFunc(func(int) {}), NoVersion())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no type found for parameter x")
}

func TestCommandNameDerivation(t *testing.T) {
	name, err := commandName(NewCommand(sumNumbers, sumDoc))
	require.NoError(t, err)
	assert.Equal(t, "sum-numbers", name)

	name, err = commandName(NewCommand(sumNumbers, sumDoc).Named("total"))
	require.NoError(t, err)
	assert.Equal(t, "total", name)

	// Anonymous functions cannot derive a name.
	_, err = commandName(NewCommand(func() {}, "Nothing."))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot derive a command name")
}

func TestKebab(t *testing.T) {
	assert.Equal(t, "summarize-text", kebab("SummarizeText"))
	assert.Equal(t, "dry-run", kebab("dry_run"))
	assert.Equal(t, "plain", kebab("plain"))

	// Acronym runs are single words.
	assert.Equal(t, "http-server", kebab("HTTPServer"))
	assert.Equal(t, "parse-url", kebab("ParseURL"))
	assert.Equal(t, "serve-tls-now", kebab("ServeTLSNow"))
}

func TestRunRejectsUnknownRootShape(t *testing.T) {
	assert.Panics(t, func() {
		runCLI(t, 42, nil)
	})
}
