// funcli-demo is a worked example: a handful of ordinary functions with
// documentation comments, turned into a CLI with subcommands.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aledsdavies/funcli"
	"github.com/aledsdavies/funcli/pkgs/types"
)

var errNotFound = fmt.Errorf("no such entry")

// greet prints a greeting count times.
func greet(name string, count int, shout bool) string {
	msg := "Hello, " + name + "!"
	if shout {
		msg = strings.ToUpper(msg)
	}
	return strings.TrimRight(strings.Repeat(msg+"\n", count), "\n")
}

const greetDoc = `Greet somebody on standard output.

:param name: Who to greet.
:param int count: How many times.
:param shout: Use capital letters.`

// add sums the given numbers.
func add(numbers []int) int {
	total := 0
	for _, n := range numbers {
		total += n
	}
	return total
}

const addDoc = `Add numbers together.

Args:
    numbers: Values to sum.`

type point struct {
	X int
	Y int
}

func distance(from point, to point) float64 {
	dx := float64(to.X - from.X)
	dy := float64(to.Y - from.Y)
	return dx*dx + dy*dy
}

const distanceDoc = `Squared distance between two grid points.

:param from: Starting point.
:param to: End point.`

func lookup(key string, table string) (string, error) {
	entries := map[string]string{"alpha": "a", "beta": "b"}
	if table != "greek" {
		return "", fmt.Errorf("unknown table %s", table)
	}
	v, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", errNotFound, key)
	}
	return v, nil
}

const lookupDoc = `Look up a key in a named table.

:param key: Entry to find.
:param table: One of the known tables.
:raises NotFound: If the key has no entry.`

func main() {
	sc := types.NewScope()
	if err := sc.RegisterErrorKind("NotFound", types.MatchIs(errNotFound), ""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sc.RegisterType("point", point{})

	root := map[string]any{
		"greet": funcli.NewCommand(greet, greetDoc).Default("count", 1).Default("shout", false),
		"math": []*funcli.Command{
			funcli.NewCommand(add, addDoc),
			funcli.NewCommand(distance, distanceDoc),
		},
		"lookup": funcli.NewCommand(lookup, lookupDoc).Default("table", "greek"),
	}

	result := funcli.Run(root,
		funcli.WithScope(sc),
		funcli.WithVersion("1.0.0"),
		funcli.ShowTypes(true),
	)
	if result != nil {
		fmt.Println(result)
	}
}
