package patterns

import "koabot/internal/units"

// BasePatterns defines reusable regex components referenced from format
// patterns with {NAME} syntax.
var BasePatterns = map[string]string{
	// Quantity: digits with at most one decimal mark, comma or dot.
	"QTY": `\d+[,.]?\d*`,

	// Unit words accepted by the Spanish unit table.
	"UNIT": `(?:` + units.Pattern(units.Spanish) + `)`,

	// A single whitespace-free token.
	"WORD": `\S+`,
}
