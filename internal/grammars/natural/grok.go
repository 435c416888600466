// Package natural handles item lines written in free word order, without
// field separators.
package natural

import "koabot/internal/patterns"

// Format names.
const (
	FormatProductFirst  = "product_first"
	FormatQuantityFirst = "quantity_first"
	FormatBadUnit       = "bad_unit"
	FormatBadQuantity   = "bad_quantity"
)

// Formats defines the natural layouts. Order matters: the compiler's Parse
// returns the first match, which mirrors grammar priority.
var Formats = []patterns.Format{
	// "Pechuga de pollo 0.25 kg", "Pan burger 12 ud quemado"
	{
		Name:    FormatProductFirst,
		Pattern: `^(?P<product>.+?)\s+(?P<qty>{QTY})\s+(?P<unit>{UNIT})(?:\s+(?P<reason>.+))?$`,
		Fields:  []string{"product", "qty", "unit", "reason"},
	},
	// "0,25 kg Pechuga de pollo". The rest is optional so that "10 kg"
	// reports the missing product instead of an unknown layout.
	{
		Name:    FormatQuantityFirst,
		Pattern: `^(?P<qty>{QTY})\s+(?P<unit>{UNIT})(?:\s+(?P<rest>.+))?$`,
		Fields:  []string{"qty", "unit", "rest"},
	},
	// "Tomate 10 invalid"
	{
		Name:    FormatBadUnit,
		Pattern: `^(?P<product>.+?)\s+(?P<qty>{QTY})\s+(?P<unit>\S+)$`,
		Fields:  []string{"product", "qty", "unit"},
	},
	// "Tomate abc kg"
	{
		Name:    FormatBadQuantity,
		Pattern: `^(?P<product>.+?)\s+(?P<qty>\S+)\s+(?P<unit>{UNIT})$`,
		Fields:  []string{"product", "qty", "unit"},
	},
}

var compiler = patterns.NewCompiler(Formats, nil).MustCompile()

// Compiler returns the compiled natural formats.
func Compiler() *patterns.Compiler {
	return compiler
}
