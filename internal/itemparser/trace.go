package itemparser

import (
	"strings"

	"koabot/internal/item"
	"koabot/internal/registry"
)

// Trace is a step-by-step account of how a line was parsed.
type Trace struct {
	Line      string                  `json:"line"`
	Grammars  []*registry.TraceResult `json:"grammars"`
	Result    *item.Line              `json:"result,omitempty"`
	Error     string                  `json:"error,omitempty"`
	ErrorKind string                  `json:"error_kind,omitempty"`
}

// TraceLine traces line with the default parser.
func TraceLine(line string) *Trace {
	return defaultParser.Trace(line)
}

// Trace runs every grammar against line, in dispatch order, and records the
// outcome Parse would return. Grammars after the winning one are still
// traced so overlaps are visible.
func (p *Parser) Trace(line string) *Trace {
	trimmed := strings.TrimSpace(line)
	t := &Trace{Line: trimmed}

	if trimmed != "" {
		for _, g := range p.Registry.AllGrammars() {
			tg, ok := g.(registry.Traceable)
			if !ok {
				t.Grammars = append(t.Grammars, &registry.TraceResult{Grammar: g.Name()})
				continue
			}
			t.Grammars = append(t.Grammars, tg.Trace(trimmed))
		}
	}

	res, err := p.Parse(trimmed)
	if err != nil {
		t.Error = err.Error()
		t.ErrorKind = item.KindName(err)
		return t
	}
	t.Result = res
	return t
}
