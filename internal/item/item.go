// Package item defines the record produced by the item-line parser and the
// validation shared by every grammar.
package item

import (
	"strings"

	"koabot/internal/quantity"
	"koabot/internal/units"
)

// UnknownRef is stored when a line carries no reference code.
const UnknownRef = "UNKNOWN"

// Line is one parsed item line.
type Line struct {
	Ref      string     `json:"ref"`
	Product  string     `json:"product"`
	Quantity float64    `json:"quantity"`
	Unit     units.Unit `json:"unit"`
	Reason   string     `json:"reason,omitempty"`
}

// Fields holds the raw strings a grammar extracted from a line, before
// normalisation.
type Fields struct {
	Grammar  string // Name of the grammar that matched.
	Ref      string
	Product  string
	Quantity string
	Unit     string
	Reason   string
}

// Build normalises f into a Line. Checks run in a fixed order: product,
// then quantity, then unit. The first failure is returned.
func Build(f *Fields, n units.Normalizer) (*Line, error) {
	product := strings.TrimSpace(f.Product)
	if product == "" {
		return nil, NewError(ErrMissingProduct, "")
	}

	q, ok := quantity.ParseDecimal(f.Quantity)
	if !ok {
		return nil, NewError(ErrInvalidQuantity, f.Quantity)
	}

	u, ok := n.Normalize(f.Unit)
	if !ok {
		return nil, NewError(ErrInvalidUnit, f.Unit)
	}

	ref := strings.TrimSpace(f.Ref)
	if ref == "" {
		ref = UnknownRef
	}

	return &Line{
		Ref:      ref,
		Product:  product,
		Quantity: q,
		Unit:     u,
		Reason:   strings.TrimSpace(f.Reason),
	}, nil
}
