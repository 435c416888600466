// Package itemparser turns one line of staff input into an item.Line.
//
// A line is trimmed, classified and handed to the first registered grammar
// that claims it; the raw fields are then normalised by item.Build. The
// package holds no mutable state and is safe for concurrent use.
package itemparser

import (
	"fmt"
	"regexp"
	"strings"

	_ "koabot/internal/grammars" // register all grammars via init()
	"koabot/internal/item"
	"koabot/internal/registry"
	"koabot/internal/units"
)

// Parser binds a grammar registry to a unit table.
type Parser struct {
	Registry *registry.Registry
	Units    units.Normalizer
}

// New returns a Parser over the default grammars and Spanish units.
func New() *Parser {
	return &Parser{Registry: registry.Default(), Units: units.Spanish}
}

var defaultParser = New()

// Parse parses line with the default parser.
func Parse(line string) (*item.Line, error) {
	return defaultParser.Parse(line)
}

// Parse returns the record for line, or a *item.ParseError.
func (p *Parser) Parse(line string) (*item.Line, error) {
	f, err := p.Fields(line)
	if err != nil {
		return nil, err
	}
	return item.Build(f, p.Units)
}

// Fields returns the raw fields for line without normalising them.
func (p *Parser) Fields(line string) (*item.Fields, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, item.NewError(item.ErrEmptyLine, "")
	}

	f, err := p.Registry.DispatchFirst(line)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, item.NewError(item.ErrUnrecognizedFormat, "")
	}
	return f, nil
}

// LineError reports which line of a multi-line submission failed.
type LineError struct {
	Line int // 1-based, counting blank lines.
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("Error al parsear la línea %d: %q\n%s", e.Line, e.Text, e.Err.Error())
}

func (e *LineError) Unwrap() error { return e.Err }

// Outcome is the result of parsing one line of a submission.
type Outcome struct {
	Number  int    // 1-based, counting blank lines.
	Text    string // Trimmed line.
	Grammar string // Grammar that claimed the line, if any.
	Line    *item.Line
	Err     error
}

// ParseAll parses every non-blank line of text without stopping at
// failures.
func (p *Parser) ParseAll(text string) []Outcome {
	var out []Outcome
	for i, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		o := Outcome{Number: i + 1, Text: trimmed}
		f, err := p.Fields(trimmed)
		if err == nil {
			o.Grammar = f.Grammar
			o.Line, err = item.Build(f, p.Units)
		}
		o.Err = err
		out = append(out, o)
	}
	return out
}

// Collect returns the parsed lines of outcomes in order, or a *LineError
// for the first failure.
func Collect(outcomes []Outcome) ([]item.Line, error) {
	lines := make([]item.Line, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			return nil, &LineError{Line: o.Number, Text: o.Text, Err: o.Err}
		}
		lines = append(lines, *o.Line)
	}
	return lines, nil
}

// ParseLines parses every non-blank line of text in order. The first
// failing line aborts the batch; there are no partial results.
func ParseLines(text string) ([]item.Line, error) {
	return defaultParser.ParseLines(text)
}

// ParseLines is the method form of the package-level ParseLines.
func (p *Parser) ParseLines(text string) ([]item.Line, error) {
	return Collect(p.ParseAll(text))
}

// Default returns the shared parser over the registered grammars.
func Default() *Parser {
	return defaultParser
}

var reasonRe = regexp.MustCompile(`(?i)motivo:\s*(.+)`)

// SplitReason separates a "motivo: <text>" line from item lines. The first
// such line sets reason; every line containing "motivo:" is dropped from
// the returned text.
func SplitReason(text string) (items string, reason string) {
	m := reasonRe.FindStringSubmatch(text)
	if m == nil {
		return text, ""
	}
	reason = strings.TrimSpace(m[1])

	var kept []string
	for _, l := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(l), "motivo:") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n"), reason
}
