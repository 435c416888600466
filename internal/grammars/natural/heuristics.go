package natural

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// A leading code token followed by more text.
var refRe = regexp.MustCompile(`^([A-Z0-9]{2,10})\s+(.+)$`)

// maxReasonLen is the longest trailing word still read as a reason.
const maxReasonLen = 8

// connectors are words that bind the following word to the product name,
// as in "Pechuga de pollo".
var connectors = map[string]bool{
	"a":   true,
	"al":  true,
	"con": true,
	"de":  true,
	"del": true,
	"en":  true,
	"sin": true,
	"y":   true,
}

// LooksLikeRef reports whether tok reads as a supplier code rather than a
// word. Codes carry a digit or are at most six characters. Short all-caps
// product names such as "PAN" are misread as codes; this is accepted.
func LooksLikeRef(tok string) bool {
	if strings.ContainsAny(tok, "0123456789") {
		return true
	}
	return len(tok) <= 6 && tok == strings.ToUpper(tok)
}

// SplitRef strips a leading reference code from text. ref is "" when text
// does not start with one.
func SplitRef(text string) (ref, rest string) {
	text = strings.TrimSpace(text)
	m := refRe.FindStringSubmatch(text)
	if m == nil || !LooksLikeRef(m[1]) {
		return "", text
	}
	return m[1], strings.TrimSpace(m[2])
}

// IsTrailingReason reports whether the last of words is a reason tag: a
// short lowercase word that does not start with a digit and does not
// follow a connector.
func IsTrailingReason(words []string) bool {
	if len(words) < 2 {
		return false
	}
	last := words[len(words)-1]
	if utf8.RuneCountInString(last) > maxReasonLen {
		return false
	}
	if last != strings.ToLower(last) {
		return false
	}
	if last[0] >= '0' && last[0] <= '9' {
		return false
	}
	return !connectors[strings.ToLower(words[len(words)-2])]
}

// SplitTrailingReason separates a trailing reason word from text.
func SplitTrailingReason(text string) (product, reason string) {
	words := strings.Fields(text)
	if !IsTrailingReason(words) {
		return strings.Join(words, " "), ""
	}
	return strings.Join(words[:len(words)-1], " "), words[len(words)-1]
}
