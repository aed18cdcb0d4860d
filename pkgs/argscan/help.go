package argscan

import (
	"fmt"
	"strings"
)

// metavar returns the placeholder rendered for one value token.
func (s *Spec) metavar() string {
	if len(s.Choices) > 0 {
		return "{" + strings.Join(s.Choices, ",") + "}"
	}
	if len(s.Metavars) > 0 {
		return s.Metavars[0]
	}
	return strings.ToUpper(strings.ReplaceAll(s.Dest, "-", "_"))
}

// valuePlaceholder renders the value tokens a spec consumes.
func (s *Spec) valuePlaceholder() string {
	m := s.metavar()
	switch s.NArgs {
	case 0:
		return ""
	case NArgsZeroOrMore:
		return fmt.Sprintf("[%s ...]", m)
	case NArgsZeroOrOne:
		return fmt.Sprintf("[%s]", m)
	case 1:
		return m
	default:
		if len(s.Metavars) == s.NArgs {
			return strings.Join(s.Metavars, " ")
		}
		return strings.TrimSpace(strings.Repeat(m+" ", s.NArgs))
	}
}

// invocation renders the flag aliases (or positional name) with placeholders,
// as shown in the options section.
func (s *Spec) invocation() string {
	if s.Positional {
		return s.valuePlaceholder()
	}
	var forms []string
	if s.Short != "" {
		forms = append(forms, "-"+s.Short)
	}
	forms = append(forms, "--"+s.Name)
	if s.NegShort != "" {
		forms = append(forms, "-"+s.NegShort)
	}
	if s.NegName != "" {
		forms = append(forms, "--"+s.NegName)
	}
	out := strings.Join(forms, ", ")
	if ph := s.valuePlaceholder(); ph != "" {
		out += " " + ph
	}
	return out
}

// usageItem renders the spec for the usage line.
func (s *Spec) usageItem() string {
	if s.Positional {
		return s.valuePlaceholder()
	}
	item := "--" + s.Name
	if s.Short != "" {
		item = "-" + s.Short
	}
	if ph := s.valuePlaceholder(); ph != "" {
		item += " " + ph
	}
	if s.NArgs == 0 && s.NegName != "" {
		item += " | --" + s.NegName
	}
	if !s.Required {
		item = "[" + item + "]"
	}
	return item
}

// Usage renders the single usage line.
func (p *Parser) Usage() string {
	parts := []string{"usage:", p.Prog, "[-h]"}
	if p.Version != "" {
		parts = append(parts, "[--version]")
	}
	for _, s := range p.specs {
		if !s.Positional {
			parts = append(parts, s.usageItem())
		}
	}
	for _, s := range p.specs {
		if s.Positional {
			parts = append(parts, s.usageItem())
		}
	}
	return strings.Join(parts, " ")
}

// Help renders the full help text: usage, description, positional arguments,
// and options.
func (p *Parser) Help() string {
	var b strings.Builder
	b.WriteString(p.Usage())
	b.WriteString("\n")
	if p.Description != "" {
		b.WriteString("\n" + p.Description + "\n")
	}

	var positionals, options []*Spec
	for _, s := range p.specs {
		if s.Positional {
			positionals = append(positionals, s)
		} else {
			options = append(options, s)
		}
	}

	writeSection := func(title string, specs []*Spec, extra ...[2]string) {
		if len(specs) == 0 && len(extra) == 0 {
			return
		}
		b.WriteString("\n" + title + ":\n")
		for _, e := range extra {
			fmt.Fprintf(&b, "  %-24s %s\n", e[0], e[1])
		}
		for _, s := range specs {
			fmt.Fprintf(&b, "  %-24s %s\n", s.invocation(), s.Help)
		}
	}

	writeSection("positional arguments", positionals)
	builtin := [][2]string{{"-h, --help", "show this help message and exit"}}
	if p.Version != "" {
		builtin = append(builtin, [2]string{"--version", "show program version and exit"})
	}
	writeSection("options", options, builtin...)
	return b.String()
}
