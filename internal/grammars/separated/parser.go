// Package separated handles item lines whose fields are joined by ';', '|'
// or ','. Fields are assigned by position once empty tokens are dropped.
package separated

import (
	"strings"

	"koabot/internal/classify"
	"koabot/internal/item"
	"koabot/internal/registry"
	"koabot/internal/units"
)

// Grammar splits separator-delimited lines.
type Grammar struct {
	// Units decides whether a fourth token is a unit or a reason.
	Units units.Normalizer
}

func init() {
	registry.Register(&Grammar{Units: units.Spanish})
}

func (g *Grammar) Name() string  { return "separated" }
func (g *Grammar) Priority() int { return 10 }

// QuickCheck defers to the classifier so that exactly one family of
// grammars sees each line.
func (g *Grammar) QuickCheck(line string) bool {
	return classify.IsSeparated(line)
}

// Split cuts line on every separator and returns the trimmed, non-empty
// tokens.
func Split(line string) []string {
	raw := strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(classify.Separators, r)
	})
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Match assigns tokens by count. A blank leading ref column is dropped with
// the other empty tokens, so "; Tomate; 10; kg" reads as three fields.
//
//	3   product, quantity, unit
//	4   ref, product, quantity, unit      when the 4th token is a unit
//	    product, quantity, unit, reason   otherwise
//	5+  ref, product, quantity, unit, reason...
func (g *Grammar) Match(line string) (*item.Fields, error) {
	tokens := Split(line)
	if len(tokens) < 3 {
		return nil, item.NewError(item.ErrTooFewFields, "")
	}

	f := &item.Fields{Grammar: g.Name()}
	switch {
	case len(tokens) >= 5:
		f.Ref, f.Product, f.Quantity, f.Unit = tokens[0], tokens[1], tokens[2], tokens[3]
		f.Reason = strings.Join(tokens[4:], " ")
	case len(tokens) == 4 && g.isUnit(tokens[3]):
		f.Ref, f.Product, f.Quantity, f.Unit = tokens[0], tokens[1], tokens[2], tokens[3]
	case len(tokens) == 4:
		f.Product, f.Quantity, f.Unit, f.Reason = tokens[0], tokens[1], tokens[2], tokens[3]
	default:
		f.Product, f.Quantity, f.Unit = tokens[0], tokens[1], tokens[2]
	}
	return f, nil
}

func (g *Grammar) isUnit(tok string) bool {
	n := g.Units
	if n == nil {
		n = units.Spanish
	}
	_, ok := n.Normalize(tok)
	return ok
}

// Trace runs the grammar and records the quick check and token split.
func (g *Grammar) Trace(line string) *registry.TraceResult {
	trace := &registry.TraceResult{Grammar: g.Name()}

	passed := g.QuickCheck(line)
	trace.QuickCheck = &registry.QuickCheck{Passed: passed}
	if !passed {
		trace.QuickCheck.Reason = "no field separators"
		return trace
	}

	tokens := Split(line)
	trace.Heuristics = append(trace.Heuristics, registry.Heuristic{
		Name:    "split",
		Input:   line,
		Applied: true,
		Value:   strings.Join(tokens, " | "),
	})
	if len(tokens) == 4 {
		trace.Heuristics = append(trace.Heuristics, registry.Heuristic{
			Name:    "fourth_token_is_unit",
			Input:   tokens[3],
			Applied: g.isUnit(tokens[3]),
		})
	}

	if _, err := g.Match(line); err != nil {
		trace.Error = err.Error()
		return trace
	}
	trace.Matched = true
	return trace
}
