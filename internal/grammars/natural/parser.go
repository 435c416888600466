package natural

import (
	"strings"

	"koabot/internal/classify"
	"koabot/internal/item"
	"koabot/internal/patterns"
	"koabot/internal/registry"
)

func init() {
	registry.Register(&ProductFirst{})
	registry.Register(&QuantityFirst{})
	registry.Register(&BadUnit{})
	registry.Register(&BadQuantity{})
}

// quickCheck is shared by every natural grammar.
func quickCheck(line string) bool {
	return !classify.IsSeparated(line)
}

// ProductFirst reads "<product> <quantity> <unit> [reason]".
type ProductFirst struct{}

func (g *ProductFirst) Name() string                { return FormatProductFirst }
func (g *ProductFirst) Priority() int               { return 20 }
func (g *ProductFirst) QuickCheck(line string) bool { return quickCheck(line) }

func (g *ProductFirst) Match(line string) (*item.Fields, error) {
	m := compiler.ParseFormat(FormatProductFirst, line)
	if m == nil {
		return nil, nil
	}
	ref, product := SplitRef(m.Get("product"))
	return &item.Fields{
		Grammar:  g.Name(),
		Ref:      ref,
		Product:  product,
		Quantity: m.Get("qty"),
		Unit:     m.Get("unit"),
		Reason:   m.Get("reason"),
	}, nil
}

func (g *ProductFirst) Trace(line string) *registry.TraceResult {
	trace, m := traceFormat(g.Name(), line)
	if m == nil {
		return trace
	}
	ref, _ := SplitRef(m.Get("product"))
	trace.Heuristics = append(trace.Heuristics, refHeuristic(m.Get("product"), ref))
	return trace
}

// QuantityFirst reads "<quantity> <unit> [ref] <product> [reason]". The
// reason is a single trailing word picked by IsTrailingReason.
type QuantityFirst struct{}

func (g *QuantityFirst) Name() string                { return FormatQuantityFirst }
func (g *QuantityFirst) Priority() int               { return 30 }
func (g *QuantityFirst) QuickCheck(line string) bool { return quickCheck(line) }

func (g *QuantityFirst) Match(line string) (*item.Fields, error) {
	m := compiler.ParseFormat(FormatQuantityFirst, line)
	if m == nil {
		return nil, nil
	}
	ref, text := SplitRef(m.Get("rest"))
	product, reason := SplitTrailingReason(text)
	return &item.Fields{
		Grammar:  g.Name(),
		Ref:      ref,
		Product:  product,
		Quantity: m.Get("qty"),
		Unit:     m.Get("unit"),
		Reason:   reason,
	}, nil
}

func (g *QuantityFirst) Trace(line string) *registry.TraceResult {
	trace, m := traceFormat(g.Name(), line)
	if m == nil {
		return trace
	}
	rest := m.Get("rest")
	ref, text := SplitRef(rest)
	_, reason := SplitTrailingReason(text)
	trace.Heuristics = append(trace.Heuristics,
		refHeuristic(rest, ref),
		registry.Heuristic{
			Name:    "trailing_reason",
			Input:   text,
			Applied: reason != "",
			Value:   reason,
		},
	)
	return trace
}

// BadUnit claims "<product> <quantity> <word>" lines that the real grammars
// rejected, so the user hears which unit was wrong.
type BadUnit struct{}

func (g *BadUnit) Name() string                { return FormatBadUnit }
func (g *BadUnit) Priority() int               { return 80 }
func (g *BadUnit) QuickCheck(line string) bool { return quickCheck(line) }

func (g *BadUnit) Match(line string) (*item.Fields, error) {
	m := compiler.ParseFormat(FormatBadUnit, line)
	if m == nil {
		return nil, nil
	}
	return nil, item.NewError(item.ErrInvalidUnit, m.Get("unit"))
}

func (g *BadUnit) Trace(line string) *registry.TraceResult {
	trace, m := traceFormat(g.Name(), line)
	if m != nil {
		_, err := g.Match(line)
		trace.Error = err.Error()
	}
	return trace
}

// BadQuantity claims "<product> <word> <unit>" lines whose quantity is not
// a number.
type BadQuantity struct{}

func (g *BadQuantity) Name() string                { return FormatBadQuantity }
func (g *BadQuantity) Priority() int               { return 81 }
func (g *BadQuantity) QuickCheck(line string) bool { return quickCheck(line) }

func (g *BadQuantity) Match(line string) (*item.Fields, error) {
	m := compiler.ParseFormat(FormatBadQuantity, line)
	if m == nil {
		return nil, nil
	}
	return nil, item.NewError(item.ErrInvalidQuantity, m.Get("qty"))
}

func (g *BadQuantity) Trace(line string) *registry.TraceResult {
	trace, m := traceFormat(g.Name(), line)
	if m != nil {
		_, err := g.Match(line)
		trace.Error = err.Error()
	}
	return trace
}

// traceFormat records the quick check and the single format attempt for a
// natural grammar. The returned match is nil when the format did not apply.
func traceFormat(name, line string) (*registry.TraceResult, *patterns.Match) {
	trace := &registry.TraceResult{Grammar: name}

	passed := quickCheck(line)
	trace.QuickCheck = &registry.QuickCheck{Passed: passed}
	if !passed {
		trace.QuickCheck.Reason = "line uses field separators"
		return trace, nil
	}

	var match *patterns.Match
	for _, ft := range compiler.ParseWithTrace(line).Formats {
		if ft.Name != name {
			continue
		}
		trace.Formats = append(trace.Formats, registry.FormatTrace{
			Name:     ft.Name,
			Matched:  ft.Matched,
			Pattern:  ft.Pattern,
			Captures: ft.Captures,
		})
		if ft.Matched {
			match = &patterns.Match{FormatName: ft.Name, Captures: ft.Captures}
		}
	}
	trace.Matched = match != nil
	return trace, match
}

func refHeuristic(input, ref string) registry.Heuristic {
	return registry.Heuristic{
		Name:    "reference_code",
		Input:   strings.TrimSpace(input),
		Applied: ref != "",
		Value:   ref,
	}
}
