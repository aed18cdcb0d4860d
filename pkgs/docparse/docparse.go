// Package docparse turns free-form documentation comments into a normalized
// description of a function: summary text, per-parameter documentation, and
// the documented error kinds. Three dialects are recognized (Sphinx field
// lists, Google sections, NumPy underlined sections) and exposed through one
// result shape.
package docparse

import (
	"regexp"
	"strings"

	"github.com/aledsdavies/funcli/pkgs/errors"
)

// Dialect selects the documentation style to parse.
type Dialect int

const (
	DialectAuto Dialect = iota
	DialectSphinx
	DialectGoogle
	DialectNumpy
)

// ParamDoc documents one parameter: its name, the optional documentation
// type-string, the description, and whether it was declared with a
// keyword-only field label.
type ParamDoc struct {
	Name        string
	Type        string
	Desc        string
	KeywordOnly bool
}

// RaiseDoc documents one error kind the function may return.
type RaiseDoc struct {
	Kind string
	Desc string
}

// Doc is the normalized documentation for one function.
type Doc struct {
	Summary string
	Params  []ParamDoc
	Raises  []RaiseDoc
}

// Param returns the documentation for a named parameter.
func (d *Doc) Param(name string) (*ParamDoc, bool) {
	for i := range d.Params {
		if d.Params[i].Name == name {
			return &d.Params[i], true
		}
	}
	return nil, false
}

// Field-label synonyms. Several labels feed the same logical field.
var (
	paramLabels = map[string]bool{"param": true, "parameter": true, "arg": true, "argument": true}
	keyLabels   = map[string]bool{"key": true, "keyword": true}
	typeLabels  = map[string]bool{"type": true, "kwtype": true}
	raiseLabels = map[string]bool{"raises": true, "raise": true, "except": true, "exception": true}
)

var (
	sphinxField   = regexp.MustCompile(`^:([a-z]+)(?:\s+([^\s:][^:]*))?:\s?(.*)$`)
	googleSection = regexp.MustCompile(`^(Args|Arguments|Keyword Args|Keyword Arguments|Raises):\s*$`)
	googleItem    = regexp.MustCompile(`^(\*{0,2}\w+)(?:\s*\(([^)]+)\))?:\s?(.*)$`)
	numpyItem     = regexp.MustCompile(`^(\*{0,2}\w+)(?:\s*:\s*(.+))?$`)
)

// Parse extracts normalized documentation from a doc comment. With
// DialectAuto the dialect is detected from the text itself.
func Parse(text string, dialect Dialect) (*Doc, error) {
	lines := dedent(text)
	if dialect == DialectAuto {
		dialect = detect(lines)
	}
	switch dialect {
	case DialectSphinx:
		return parseSphinx(lines)
	case DialectGoogle:
		return parseGoogle(lines)
	case DialectNumpy:
		return parseNumpy(lines)
	}
	return &Doc{Summary: strings.TrimSpace(strings.Join(lines, "\n"))}, nil
}

func detect(lines []string) Dialect {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := sphinxField.FindStringSubmatch(trimmed); m != nil {
			label := m[1]
			if paramLabels[label] || keyLabels[label] || typeLabels[label] || raiseLabels[label] {
				return DialectSphinx
			}
		}
		if googleSection.MatchString(trimmed) {
			return DialectGoogle
		}
		if i+1 < len(lines) && isUnderline(lines[i+1]) && isNumpySection(trimmed) {
			return DialectNumpy
		}
	}
	return DialectAuto // no recognizable fields; summary only
}

func isUnderline(line string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= 3 && strings.Trim(trimmed, "-") == ""
}

func isNumpySection(line string) bool {
	switch line {
	case "Parameters", "Keyword Arguments", "Other Parameters", "Raises":
		return true
	}
	return false
}

// accumulator enforces the no-duplicate rules while preserving declaration
// order.
type accumulator struct {
	doc     Doc
	summary []string
}

func (a *accumulator) addParam(name, desc string, keywordOnly bool) error {
	name = strings.TrimLeft(name, "*")
	if p, ok := a.doc.Param(name); ok {
		if p.Desc != "" {
			return errors.New(errors.ErrDocParse, "parameter defined twice for %s", name)
		}
		p.Desc = desc
		p.KeywordOnly = p.KeywordOnly || keywordOnly
		return nil
	}
	a.doc.Params = append(a.doc.Params, ParamDoc{Name: name, Desc: desc, KeywordOnly: keywordOnly})
	return nil
}

func (a *accumulator) setType(name, typeExpr string) error {
	name = strings.TrimLeft(name, "*")
	if p, ok := a.doc.Param(name); ok {
		if p.Type != "" {
			return errors.New(errors.ErrDocParse, "type defined twice for %s", name)
		}
		p.Type = strings.TrimSpace(typeExpr)
		return nil
	}
	a.doc.Params = append(a.doc.Params, ParamDoc{Name: name, Type: strings.TrimSpace(typeExpr)})
	return nil
}

func (a *accumulator) appendDesc(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(a.doc.Params); n > 0 {
		p := &a.doc.Params[n-1]
		if p.Desc != "" {
			p.Desc += " "
		}
		p.Desc += line
	}
}

func (a *accumulator) appendRaiseDesc(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(a.doc.Raises); n > 0 {
		r := &a.doc.Raises[n-1]
		if r.Desc != "" {
			r.Desc += " "
		}
		r.Desc += line
	}
}

func (a *accumulator) finish() *Doc {
	a.doc.Summary = strings.TrimSpace(strings.Join(a.summary, "\n"))
	return &a.doc
}

func parseSphinx(lines []string) (*Doc, error) {
	acc := &accumulator{}
	// target tracks where indented continuation lines belong.
	const (
		inSummary = iota
		inParam
		inRaise
		inOther
	)
	target := inSummary
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		m := sphinxField.FindStringSubmatch(trimmed)
		if m == nil {
			switch {
			case target == inSummary:
				acc.summary = append(acc.summary, line)
			case target == inParam && strings.TrimSpace(line) != "":
				acc.appendDesc(line)
			case target == inRaise && strings.TrimSpace(line) != "":
				acc.appendRaiseDesc(line)
			}
			continue
		}
		label, arg, body := m[1], strings.TrimSpace(m[2]), m[3]
		switch {
		case paramLabels[label] || keyLabels[label]:
			// ":param type name: desc" carries an inline type. The name is
			// the last word; everything before it is the type string, which
			// may itself contain spaces ("int or string").
			name, inline := arg, ""
			if idx := strings.LastIndexByte(arg, ' '); idx >= 0 {
				inline, name = strings.TrimSpace(arg[:idx]), arg[idx+1:]
			}
			if err := acc.addParam(name, strings.TrimSpace(body), keyLabels[label]); err != nil {
				return nil, err
			}
			if inline != "" {
				if err := acc.setType(strings.TrimLeft(name, "*"), inline); err != nil {
					return nil, err
				}
			}
			target = inParam
		case typeLabels[label]:
			if err := acc.setType(arg, body); err != nil {
				return nil, err
			}
			target = inOther
		case raiseLabels[label]:
			acc.doc.Raises = append(acc.doc.Raises, RaiseDoc{Kind: arg, Desc: strings.TrimSpace(body)})
			target = inRaise
		default:
			target = inOther // unrecognized field: skipped, not part of summary
		}
	}
	return acc.finish(), nil
}

func parseGoogle(lines []string) (*Doc, error) {
	acc := &accumulator{}
	section := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := googleSection.FindStringSubmatch(trimmed); m != nil {
			section = m[1]
			continue
		}
		switch section {
		case "":
			acc.summary = append(acc.summary, line)
		case "Args", "Arguments", "Keyword Args", "Keyword Arguments":
			keywordOnly := strings.HasPrefix(section, "Keyword")
			if isItemLine(line) {
				m := googleItem.FindStringSubmatch(trimmed)
				if m == nil {
					continue
				}
				if err := acc.addParam(m[1], strings.TrimSpace(m[3]), keywordOnly); err != nil {
					return nil, err
				}
				if m[2] != "" {
					if err := acc.setType(strings.TrimLeft(m[1], "*"), m[2]); err != nil {
						return nil, err
					}
				}
			} else {
				acc.appendDesc(line)
			}
		case "Raises":
			if isItemLine(line) {
				name, desc, found := strings.Cut(trimmed, ":")
				if !found {
					continue
				}
				acc.doc.Raises = append(acc.doc.Raises,
					RaiseDoc{Kind: strings.TrimSpace(name), Desc: strings.TrimSpace(desc)})
			} else {
				acc.appendRaiseDesc(line)
			}
		}
	}
	return acc.finish(), nil
}

// isItemLine distinguishes a section item from the continuation of the
// previous item by indentation depth: items sit at the section's first
// level, continuations deeper.
func isItemLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return false
	}
	return len(line)-len(trimmed) <= 4
}

// isNumpyItemLine distinguishes items from descriptions in the underlined
// dialect: items sit flush with the section header, descriptions indented.
func isNumpyItemLine(line string) bool {
	return line != "" && line[0] != ' ' && line[0] != '\t'
}

func parseNumpy(lines []string) (*Doc, error) {
	acc := &accumulator{}
	section := ""
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if i+1 < len(lines) && isUnderline(lines[i+1]) && isNumpySection(trimmed) {
			section = trimmed
			i++ // skip the underline
			continue
		}
		switch section {
		case "":
			acc.summary = append(acc.summary, lines[i])
		case "Parameters", "Keyword Arguments", "Other Parameters":
			keywordOnly := section != "Parameters"
			m := numpyItem.FindStringSubmatch(trimmed)
			if !isNumpyItemLine(lines[i]) || m == nil {
				acc.appendDesc(lines[i])
				continue
			}
			if err := acc.addParam(m[1], "", keywordOnly); err != nil {
				return nil, err
			}
			if m[2] != "" {
				if err := acc.setType(strings.TrimLeft(m[1], "*"), m[2]); err != nil {
					return nil, err
				}
			}
		case "Raises":
			if isNumpyItemLine(lines[i]) {
				acc.doc.Raises = append(acc.doc.Raises, RaiseDoc{Kind: trimmed})
			} else {
				acc.appendRaiseDesc(lines[i])
			}
		}
	}
	return acc.finish(), nil
}

// dedent strips the common leading whitespace from every non-blank line,
// ignoring the first line (which usually sits flush after the opening quote
// of a raw string).
func dedent(text string) []string {
	lines := strings.Split(strings.Trim(text, "\n"), "\n")
	margin := -1
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin > 0 {
		for i, line := range lines {
			if i == 0 || strings.TrimSpace(line) == "" {
				continue
			}
			lines[i] = line[margin:]
		}
	}
	return lines
}
