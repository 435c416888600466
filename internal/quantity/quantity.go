// Package quantity parses decimal quantities written with either a comma or a
// dot as the decimal mark.
package quantity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrTooPrecise is returned by CheckPrecision.
var ErrTooPrecise = errors.New("too many decimal places")

// ParseDecimal parses s as a decimal number. The first comma is read as the
// decimal mark. It returns false for empty input, non-numeric text and values
// that are not finite. No range check is performed.
func ParseDecimal(s string) (float64, bool) {
	normalized := strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	if normalized == "" {
		return 0, false
	}

	n, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// CheckPrecision fails when q has more than maxPlaces decimal places.
func CheckPrecision(q float64, maxPlaces int32) error {
	d := decimal.NewFromFloat(q)
	if d.Exponent() >= 0 {
		return nil
	}
	if places := -d.Exponent(); places > maxPlaces {
		return fmt.Errorf("%w: %s has %d, max %d", ErrTooPrecise, d.String(), places, maxPlaces)
	}
	return nil
}

// Format renders q without trailing zeros, the way it was typed.
func Format(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// Sum adds quantities without binary rounding drift.
func Sum(qs ...float64) float64 {
	total := decimal.Zero
	for _, q := range qs {
		total = total.Add(decimal.NewFromFloat(q))
	}
	f, _ := total.Float64()
	return f
}
