package classify

import (
	"strings"
	"testing"
)

func TestIsSeparated(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		// Explicit separators.
		{"ABC123; Tomate; 10; kg", true},
		{"; Tomate; 10; kg", true},
		{";Tomate", true},
		{"ABC123 | Tomate | 10 | kg", true},
		{"Tomate|10|kg", true},
		{"ABC123, Tomate, 10, kg", true},
		{"Tomate, 10, kg", true},
		{"Tomate 2,5 kg, caducado", true},

		// Single comma used as a field separator.
		{"Tomate, 10 kg", true},
		{"Tomate,10 kg", true},
		{"10 kg, Tomate", true},
		{"2, 5 kg Tomate", true},
		{"2 ,5 kg Tomate", true},

		// Single comma used as a decimal mark.
		{"Tomate 2,5 kg", false},
		{"0,25 kg Pechuga de pollo", false},
		{"Pechuga 0,25 kg caducado", false},

		// No separators at all.
		{"Tomate 10 kg", false},
		{"Pechuga de pollo 0.25 kg", false},
		{"PAN010 Pan burger 12 ud", false},
		{"10 kg", false},
	}

	for _, tt := range tests {
		if got := IsSeparated(tt.line); got != tt.want {
			t.Errorf("IsSeparated(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestIsDecimalComma(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"2,5", true},
		{"Tomate 2,5 kg", true},
		{"10,125 kg", true},
		{"a2,5", false},
		{"2,a", false},
		{"2, 5", false},
		{"2 ,5", false},
		{",5", false},
		{"5,", false},
		{"x,5", false},
	}

	for _, tt := range tests {
		idx := strings.IndexByte(tt.line, ',')
		if got := IsDecimalComma(tt.line, idx); got != tt.want {
			t.Errorf("IsDecimalComma(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestIsDecimalComma_NotAComma(t *testing.T) {
	if IsDecimalComma("2.5", 1) {
		t.Error("a dot is not a decimal comma")
	}
	if IsDecimalComma("2,5", -1) {
		t.Error("negative index must be rejected")
	}
}

func TestSeparatorCount(t *testing.T) {
	tests := map[string]int{
		"":                      0,
		"Tomate 10 kg":          0,
		"2,5":                   1,
		"a;b|c,d":               3,
		"; Tomate; 10; kg":      3,
		"A; B; 2,5; kg; motivo": 5,
	}
	for line, want := range tests {
		if got := SeparatorCount(line); got != want {
			t.Errorf("SeparatorCount(%q) = %d, want %d", line, got, want)
		}
	}
}
