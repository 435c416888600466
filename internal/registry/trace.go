// Package registry provides tracing interfaces for grammar debugging.
package registry

// TraceResult contains trace information from a grammar's attempt at a line.
type TraceResult struct {
	Grammar    string        `json:"grammar"`
	QuickCheck *QuickCheck   `json:"quick_check,omitempty"`
	Formats    []FormatTrace `json:"formats,omitempty"`
	Heuristics []Heuristic   `json:"heuristics,omitempty"`
	Matched    bool          `json:"matched"`
	Error      string        `json:"error,omitempty"`
}

// QuickCheck contains the result of a grammar's quick check.
type QuickCheck struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// FormatTrace contains debug information about a pattern match attempt.
type FormatTrace struct {
	Name     string            `json:"name"`
	Matched  bool              `json:"matched"`
	Pattern  string            `json:"pattern"`
	Captures map[string]string `json:"captures,omitempty"`
}

// Heuristic records a post-match decision such as reference stripping.
type Heuristic struct {
	Name    string `json:"name"`
	Input   string `json:"input"`
	Applied bool   `json:"applied"`
	Value   string `json:"value,omitempty"`
}

// Traceable is implemented by grammars that support debug tracing.
type Traceable interface {
	// Trace attempts the line and reports every step taken.
	Trace(line string) *TraceResult
}
