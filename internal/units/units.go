// Package units normalises free-form Spanish unit words into the closed set
// of units the operations store accepts.
package units

import (
	"regexp"
	"sort"
	"strings"
)

// Unit is a canonical unit code.
type Unit string

const (
	Piece    Unit = "ud"
	Kilogram Unit = "kg"
	Liter    Unit = "L"
)

// All lists the canonical units in display order.
var All = []Unit{Piece, Kilogram, Liter}

// Valid reports whether u is one of the canonical units.
func (u Unit) Valid() bool {
	switch u {
	case Piece, Kilogram, Liter:
		return true
	}
	return false
}

func (u Unit) String() string { return string(u) }

// Normalizer maps raw unit words onto canonical units.
type Normalizer interface {
	// Normalize returns the canonical unit for raw, or false when the word
	// is not a recognised synonym.
	Normalize(raw string) (Unit, bool)

	// Words returns every accepted synonym, lower case.
	Words() []string
}

// Table is a Normalizer backed by a synonym map. Keys must be lower case.
type Table map[string]Unit

// Normalize lower-cases and trims raw before the lookup.
func (t Table) Normalize(raw string) (Unit, bool) {
	u, ok := t[strings.ToLower(strings.TrimSpace(raw))]
	return u, ok
}

// Words returns the synonyms sorted longest first, then alphabetically.
func (t Table) Words() []string {
	words := make([]string, 0, len(t))
	for w := range t {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return words
}

// Spanish is the synonym table used by the item-line parser.
var Spanish = Table{
	"ud":       Piece,
	"unidad":   Piece,
	"unidades": Piece,

	"kg":    Kilogram,
	"kilo":  Kilogram,
	"kilos": Kilogram,

	"l":      Liter,
	"lt":     Liter,
	"litro":  Liter,
	"litros": Liter,
}

// Normalize normalises raw with the Spanish table.
func Normalize(raw string) (Unit, bool) {
	return Spanish.Normalize(raw)
}

// Pattern returns a regex alternation matching any word of n. Longer words
// come first so that "litros" is preferred over "l".
func Pattern(n Normalizer) string {
	words := n.Words()
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}
