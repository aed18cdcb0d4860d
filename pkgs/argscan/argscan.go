// Package argscan is the command-line tokenizer the mapping engine targets.
// It follows argparse conventions: long and short flags, "--flag=value",
// fixed and zero-or-more arity, intermixed positionals, last-flag-wins
// repetition, and a usage/help rendering of the registered specifications.
//
// Its error convention is a parse-error message plus usage on the error
// stream and exit status 2; the dispatcher applies it.
package argscan

import (
	goerrors "errors"
	"regexp"
	"sort"
	"strings"

	"github.com/aledsdavies/funcli/pkgs/errors"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Arity sentinels for Spec.NArgs. Non-negative values are fixed token
// counts.
const (
	NArgsZeroOrMore = -1
	NArgsZeroOrOne  = -2
)

// Sentinel results for the two early-exit tokens.
var (
	ErrHelp    = goerrors.New("help requested")
	ErrVersion = goerrors.New("version requested")
)

// Spec is one flag or positional specification.
type Spec struct {
	Dest       string // destination name parsed values are stored under
	Name       string // long flag name (hyphenated) or positional name
	Short      string // single-letter alias, empty for none
	NegName    string // negative alias for boolean pairs ("no-x")
	NegShort   string
	Positional bool
	Required   bool
	NArgs      int  // 0 for zero-arity boolean flags
	Append     bool // repeated occurrences accumulate instead of overriding
	Const      any  // stored for a zero-arity positive match
	NegConst   any  // stored for a zero-arity negative match
	Default    any
	HasDefault bool
	HideDefault bool // suppress the default in help (variadic placeholders)
	Help       string
	Metavars   []string // value placeholders; length 1 unless fixed arity > 1
	Choices    []string // enumerated labels for usage rendering

	// Parse converts one occurrence's consumed tokens into the stored value.
	// Unused for zero-arity specs.
	Parse func(tokens []string) (any, error)
}

func (s *Spec) label() string {
	if s.Positional {
		return s.Name
	}
	return "--" + s.Name
}

// Parser scans an argument vector against a set of specs.
type Parser struct {
	Prog        string
	Description string
	Version     string // enables --version when non-empty

	specs       []*Spec
	positionals []*Spec
	longs       map[string]*Spec
	shorts      map[string]*Spec
	negLongs    map[string]*Spec
	negShorts   map[string]*Spec
}

// New returns an empty parser for the given program name.
func New(prog, description string) *Parser {
	return &Parser{
		Prog:        prog,
		Description: description,
		longs:       make(map[string]*Spec),
		shorts:      make(map[string]*Spec),
		negLongs:    make(map[string]*Spec),
		negShorts:   make(map[string]*Spec),
	}
}

// Add registers a spec. Name collisions are construction-time bugs in the
// mapping engine and reported as specification errors.
func (p *Parser) Add(s *Spec) error {
	if s.Positional {
		p.positionals = append(p.positionals, s)
	} else {
		// Negative aliases share the long-flag namespace, so a parameter
		// named no_x collides with the pair synthesized for a boolean x.
		if p.flagTaken(s.Name) {
			return errors.New(errors.ErrSpec, "duplicate flag --%s", s.Name)
		}
		if s.NegName != "" && p.flagTaken(s.NegName) {
			return errors.New(errors.ErrSpec, "duplicate flag --%s", s.NegName)
		}
		p.longs[s.Name] = s
		if s.Short != "" {
			p.shorts[s.Short] = s
		}
		if s.NegName != "" {
			p.negLongs[s.NegName] = s
		}
		if s.NegShort != "" {
			p.negShorts[s.NegShort] = s
		}
	}
	p.specs = append(p.specs, s)
	return nil
}

func (p *Parser) flagTaken(name string) bool {
	if _, ok := p.longs[name]; ok {
		return true
	}
	_, ok := p.negLongs[name]
	return ok
}

var negativeNumber = regexp.MustCompile(`^-\d`)

// looksLikeFlag reports whether a token terminates greedy value consumption.
func looksLikeFlag(tok string) bool {
	return len(tok) > 1 && tok[0] == '-' && !negativeNumber.MatchString(tok)
}

// Parse scans args and returns the destination→value map. Defaults are
// filled for unseen specs that carry one; required specs that were never
// seen produce a parse error.
func (p *Parser) Parse(args []string) (map[string]any, error) {
	values := make(map[string]any)
	seen := make(map[string]bool)
	posIdx := 0
	onlyPositionals := false

	for i := 0; i < len(args); {
		tok := args[i]
		switch {
		case !onlyPositionals && tok == "--":
			onlyPositionals = true
			i++

		case !onlyPositionals && (tok == "-h" || tok == "--help"):
			return nil, ErrHelp

		case !onlyPositionals && p.Version != "" && tok == "--version":
			return nil, ErrVersion

		case !onlyPositionals && strings.HasPrefix(tok, "--"):
			name, inline, hasInline := strings.Cut(tok[2:], "=")
			spec, negative := p.lookupLong(name)
			if spec == nil {
				return nil, p.unknownFlag("--" + name)
			}
			next, err := p.applyFlag(spec, negative, args, i+1, inline, hasInline, values, seen)
			if err != nil {
				return nil, err
			}
			i = next

		case !onlyPositionals && looksLikeFlag(tok):
			name, inline, hasInline := strings.Cut(tok[1:], "=")
			if len(name) != 1 {
				return nil, p.unknownFlag(tok)
			}
			spec, negative := p.lookupShort(name)
			if spec == nil {
				return nil, p.unknownFlag(tok)
			}
			next, err := p.applyFlag(spec, negative, args, i+1, inline, hasInline, values, seen)
			if err != nil {
				return nil, err
			}
			i = next

		default:
			if posIdx >= len(p.positionals) {
				return nil, errors.New(errors.ErrParse, "unrecognized arguments: %s", tok)
			}
			spec := p.positionals[posIdx]
			posIdx++
			tokens, next, err := p.consumePositional(spec, args, i, onlyPositionals)
			if err != nil {
				return nil, err
			}
			if err := p.store(spec, tokens, values, seen); err != nil {
				return nil, err
			}
			i = next
		}
	}

	if missing := p.missingRequired(seen); len(missing) > 0 {
		return nil, errors.New(errors.ErrParse,
			"the following arguments are required: %s", strings.Join(missing, ", "))
	}
	for _, s := range p.specs {
		if !seen[s.Dest] && s.HasDefault {
			values[s.Dest] = s.Default
		}
	}
	return values, nil
}

func (p *Parser) lookupLong(name string) (spec *Spec, negative bool) {
	if s, ok := p.longs[name]; ok {
		return s, false
	}
	if s, ok := p.negLongs[name]; ok {
		return s, true
	}
	return nil, false
}

func (p *Parser) lookupShort(name string) (spec *Spec, negative bool) {
	if s, ok := p.shorts[name]; ok {
		return s, false
	}
	if s, ok := p.negShorts[name]; ok {
		return s, true
	}
	return nil, false
}

// applyFlag consumes a flag occurrence's value tokens and stores the parsed
// result. i points at the first token after the flag itself.
func (p *Parser) applyFlag(spec *Spec, negative bool, args []string, i int, inline string, hasInline bool, values map[string]any, seen map[string]bool) (int, error) {
	if spec.NArgs == 0 {
		if hasInline {
			return 0, errors.New(errors.ErrParse,
				"argument %s: ignored explicit value %q", spec.label(), inline)
		}
		if negative {
			values[spec.Dest] = spec.NegConst
		} else {
			values[spec.Dest] = spec.Const
		}
		seen[spec.Dest] = true
		return i, nil
	}

	var tokens []string
	if hasInline {
		// An inline value is a single token; fixed arities above one can
		// never be satisfied by it.
		if spec.NArgs > 1 {
			return 0, errors.New(errors.ErrParse,
				"argument %s: expected %d argument(s)", spec.label(), spec.NArgs)
		}
		tokens = []string{inline}
	} else {
		switch spec.NArgs {
		case NArgsZeroOrMore:
			for i < len(args) && !looksLikeFlag(args[i]) {
				tokens = append(tokens, args[i])
				i++
			}
		case NArgsZeroOrOne:
			if i < len(args) && !looksLikeFlag(args[i]) {
				tokens = append(tokens, args[i])
				i++
			}
		default:
			for n := 0; n < spec.NArgs; n++ {
				if i >= len(args) || looksLikeFlag(args[i]) {
					return 0, errors.New(errors.ErrParse,
						"argument %s: expected %d argument(s)", spec.label(), spec.NArgs)
				}
				tokens = append(tokens, args[i])
				i++
			}
		}
	}
	if err := p.store(spec, tokens, values, seen); err != nil {
		return 0, err
	}
	return i, nil
}

// consumePositional takes the tokens a positional spec is entitled to,
// starting at i.
func (p *Parser) consumePositional(spec *Spec, args []string, i int, onlyPositionals bool) (tokens []string, next int, err error) {
	isValue := func(tok string) bool { return onlyPositionals || !looksLikeFlag(tok) }
	switch spec.NArgs {
	case NArgsZeroOrMore:
		for i < len(args) && isValue(args[i]) {
			tokens = append(tokens, args[i])
			i++
		}
	case NArgsZeroOrOne, 1:
		tokens = append(tokens, args[i])
		i++
	default:
		for n := 0; n < spec.NArgs; n++ {
			if i >= len(args) || !isValue(args[i]) {
				return nil, 0, errors.New(errors.ErrParse,
					"argument %s: expected %d argument(s)", spec.Name, spec.NArgs)
			}
			tokens = append(tokens, args[i])
			i++
		}
	}
	return tokens, i, nil
}

func (p *Parser) store(spec *Spec, tokens []string, values map[string]any, seen map[string]bool) error {
	v, err := spec.Parse(tokens)
	if err != nil {
		return errors.Wrap(errors.ErrParse, err, "argument %s", spec.label())
	}
	if spec.Append {
		prev, _ := values[spec.Dest].([]any)
		values[spec.Dest] = append(prev, v)
	} else {
		values[spec.Dest] = v
	}
	seen[spec.Dest] = true
	return nil
}

func (p *Parser) missingRequired(seen map[string]bool) []string {
	var missing []string
	for _, s := range p.specs {
		if s.Required && !seen[s.Dest] {
			missing = append(missing, s.label())
		}
	}
	return missing
}

// unknownFlag builds the unrecognized-flag error, with a closest-match
// suggestion when one exists.
func (p *Parser) unknownFlag(tok string) error {
	candidates := make([]string, 0, len(p.longs)+len(p.negLongs))
	for name := range p.longs {
		candidates = append(candidates, name)
	}
	for name := range p.negLongs {
		candidates = append(candidates, name)
	}
	trimmed := strings.TrimLeft(tok, "-")
	if ranks := fuzzy.RankFindFold(trimmed, candidates); len(ranks) > 0 {
		sort.Sort(ranks)
		return errors.New(errors.ErrParse,
			"unrecognized arguments: %s (did you mean --%s?)", tok, ranks[0].Target)
	}
	return errors.New(errors.ErrParse, "unrecognized arguments: %s", tok)
}
