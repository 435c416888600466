// Package patterns provides a grok-style regex compiler for item-line
// formats. Formats are written with {PLACEHOLDER} references that expand to
// shared base patterns.
package patterns

import (
	"regexp"
	"strings"
)

// Format is one line layout with named capture groups.
type Format struct {
	Name     string         // Format name for identification
	Pattern  string         // Pattern with {PLACEHOLDER} syntax
	Compiled *regexp.Regexp // Compiled regex (populated by Compile)
	Fields   []string       // Field names in capture order (for documentation)
}

// Compiler manages pattern compilation and matching for a set of formats.
type Compiler struct {
	basePatterns map[string]string
	formats      []Format
}

// NewCompiler creates a compiler for formats. localPatterns are overlaid on
// BasePatterns and may override them.
func NewCompiler(formats []Format, localPatterns map[string]string) *Compiler {
	c := &Compiler{
		basePatterns: make(map[string]string),
		formats:      make([]Format, len(formats)),
	}

	for k, v := range BasePatterns {
		c.basePatterns[k] = v
	}
	for k, v := range localPatterns {
		c.basePatterns[k] = v
	}

	copy(c.formats, formats)

	return c
}

// Compile expands all {PLACEHOLDER} references and compiles the formats.
// Matching is case-insensitive; captures keep the original casing.
func (c *Compiler) Compile() error {
	for i := range c.formats {
		re, err := regexp.Compile("(?i)" + c.expand(c.formats[i].Pattern))
		if err != nil {
			return err
		}
		c.formats[i].Compiled = re
	}
	return nil
}

// MustCompile is like Compile but panics on error. Formats are static, so
// a failure is a programming error.
func (c *Compiler) MustCompile() *Compiler {
	if err := c.Compile(); err != nil {
		panic("patterns: " + err.Error())
	}
	return c
}

func (c *Compiler) expand(pattern string) string {
	result := pattern
	for name, regex := range c.basePatterns {
		result = strings.ReplaceAll(result, "{"+name+"}", regex)
	}
	return result
}

// Match is a successful format match.
type Match struct {
	FormatName string            // Name of the matched format
	Captures   map[string]string // Named capture group values
}

// Parse tries every format in order and returns the first match, or nil.
func (c *Compiler) Parse(text string) *Match {
	for _, format := range c.formats {
		if captures := capture(format.Compiled, text); captures != nil {
			return &Match{FormatName: format.Name, Captures: captures}
		}
	}
	return nil
}

// ParseFormat matches text against the single named format.
func (c *Compiler) ParseFormat(name, text string) *Match {
	for _, format := range c.formats {
		if format.Name != name {
			continue
		}
		if captures := capture(format.Compiled, text); captures != nil {
			return &Match{FormatName: format.Name, Captures: captures}
		}
		return nil
	}
	return nil
}

func capture(re *regexp.Regexp, text string) map[string]string {
	if re == nil {
		return nil
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	captures := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		captures[name] = m[i]
	}
	return captures
}

// Get returns a trimmed capture, or "" when absent.
func (m *Match) Get(name string) string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.Captures[name])
}

// FormatTrace records one format match attempt.
type FormatTrace struct {
	Name     string            // Format name
	Matched  bool              // Whether the pattern matched
	Pattern  string            // The expanded regex pattern
	Captures map[string]string // Captured groups (if matched)
}

// ParseTrace contains every attempt plus the first match.
type ParseTrace struct {
	Formats []FormatTrace
	Match   *Match
}

// ParseWithTrace tries all formats and records each attempt. Formats after
// the first match are still tried so the trace shows overlaps.
func (c *Compiler) ParseWithTrace(text string) *ParseTrace {
	trace := &ParseTrace{
		Formats: make([]FormatTrace, 0, len(c.formats)),
	}

	for _, format := range c.formats {
		ft := FormatTrace{
			Name:    format.Name,
			Pattern: c.expand(format.Pattern),
		}

		if captures := capture(format.Compiled, text); captures != nil {
			ft.Matched = true
			ft.Captures = captures
			if trace.Match == nil {
				trace.Match = &Match{FormatName: format.Name, Captures: captures}
			}
		}

		trace.Formats = append(trace.Formats, ft)
	}

	return trace
}
