// Package classify decides whether an item line uses explicit field
// separators or free word order.
package classify

import "strings"

// Separators are the characters that may delimit fields.
const Separators = ";|,"

// SeparatorCount counts separator characters anywhere in line.
func SeparatorCount(line string) int {
	n := 0
	for i := 0; i < len(line); i++ {
		if strings.IndexByte(Separators, line[i]) >= 0 {
			n++
		}
	}
	return n
}

// IsSeparated reports whether a trimmed, non-empty line should be split on
// separators rather than read as natural word order.
func IsSeparated(line string) bool {
	if strings.HasPrefix(line, ";") {
		return true
	}
	if strings.ContainsAny(line, ";|") {
		return true
	}

	switch SeparatorCount(line) {
	case 0:
		return false
	case 1:
		// Only a comma is left at this point.
		return !IsDecimalComma(line, strings.IndexByte(line, ','))
	default:
		return true
	}
}

// IsDecimalComma reports whether the comma at idx is a decimal mark: the
// characters immediately before it, back to whitespace or the start of the
// line, are all digits, and the character immediately after it is a digit.
func IsDecimalComma(line string, idx int) bool {
	if idx <= 0 || idx >= len(line)-1 || line[idx] != ',' {
		return false
	}
	if !isDigit(line[idx+1]) {
		return false
	}

	start := idx
	for start > 0 && !isSpace(line[start-1]) {
		start--
	}
	for i := start; i < idx; i++ {
		if !isDigit(line[i]) {
			return false
		}
	}
	return start < idx
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
