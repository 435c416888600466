package units

import (
	"regexp"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw    string
		want   Unit
		wantOK bool
	}{
		{"ud", Piece, true},
		{"unidad", Piece, true},
		{"Unidades", Piece, true},
		{"kg", Kilogram, true},
		{" KILO ", Kilogram, true},
		{"kilos", Kilogram, true},
		{"l", Liter, true},
		{"L", Liter, true},
		{"lt", Liter, true},
		{"litro", Liter, true},
		{"LITROS", Liter, true},
		{"g", "", false},
		{"gramos", "", false},
		{"invalid", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := Normalize(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNormalize_CanonicalIsIdempotent(t *testing.T) {
	for _, u := range All {
		got, ok := Normalize(string(u))
		if !ok || got != u {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, true)", u, got, ok, u)
		}
	}
}

func TestUnitValid(t *testing.T) {
	for _, u := range All {
		if !u.Valid() {
			t.Errorf("%q.Valid() = false", u)
		}
	}
	if Unit("l").Valid() {
		t.Error(`Unit("l").Valid() = true, only "L" is canonical`)
	}
}

func TestPattern(t *testing.T) {
	re := regexp.MustCompile(`(?i)^(?:` + Pattern(Spanish) + `)$`)

	for _, w := range Spanish.Words() {
		if !re.MatchString(w) {
			t.Errorf("pattern does not match %q", w)
		}
	}
	if re.MatchString("gramos") {
		t.Error("pattern matches gramos")
	}

	words := Spanish.Words()
	if words[0] != "unidades" {
		t.Errorf("Words()[0] = %q, want longest word first", words[0])
	}
}

func TestTable_Extension(t *testing.T) {
	table := Table{"ud": Piece, "pieza": Piece}

	if got, ok := table.Normalize("Pieza"); !ok || got != Piece {
		t.Errorf("Normalize(Pieza) = (%q, %v)", got, ok)
	}
	if _, ok := table.Normalize("kg"); ok {
		t.Error("custom table should not know kg")
	}
}
