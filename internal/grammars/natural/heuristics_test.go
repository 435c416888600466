package natural

import (
	"strings"
	"testing"
)

func TestLooksLikeRef(t *testing.T) {
	testCases := []struct {
		tok  string
		want bool
	}{
		{"ABC123", true},
		{"PAN010", true},
		{"POLLO001", true},
		{"1234567890", true},
		{"PAN", true},
		{"ABCDEF", true},
		// Known false positive: short all-caps names read as codes.
		{"KIWI", true},
		{"ABCDEFG", false},
		{"TOMATES", false},
	}
	for _, tc := range testCases {
		if got := LooksLikeRef(tc.tok); got != tc.want {
			t.Errorf("LooksLikeRef(%q) = %v, want %v", tc.tok, got, tc.want)
		}
	}
}

func TestSplitRef(t *testing.T) {
	testCases := []struct {
		text     string
		wantRef  string
		wantRest string
	}{
		{"PAN010 Pan burger", "PAN010", "Pan burger"},
		{"Pechuga de pollo", "", "Pechuga de pollo"},
		{"PAN010", "", "PAN010"},
		{"ACEITUNAS verdes", "", "ACEITUNAS verdes"},
		{"AB Tomate", "AB", "Tomate"},
		{"pan010 Pan", "", "pan010 Pan"},
		{"  X9   Salsa ", "X9", "Salsa"},
		{"", "", ""},
	}
	for _, tc := range testCases {
		ref, rest := SplitRef(tc.text)
		if ref != tc.wantRef || rest != tc.wantRest {
			t.Errorf("SplitRef(%q) = (%q, %q), want (%q, %q)", tc.text, ref, rest, tc.wantRef, tc.wantRest)
		}
	}
}

func TestIsTrailingReason(t *testing.T) {
	testCases := []struct {
		text string
		want bool
	}{
		{"Pan burger quemado", true},
		{"Tomate roto", true},
		{"Tomate", false},
		{"Pechuga de pollo", false},
		{"Pan con tomate", false},
		{"Pan burger Quemado", false},
		{"Pan burger caducadisimo", false},
		{"Pan burger 2x", false},
		{"Leche entera", true},
	}
	for _, tc := range testCases {
		if got := IsTrailingReason(strings.Fields(tc.text)); got != tc.want {
			t.Errorf("IsTrailingReason(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestSplitTrailingReason(t *testing.T) {
	product, reason := SplitTrailingReason("Pan  burger quemado")
	if product != "Pan burger" || reason != "quemado" {
		t.Errorf("got (%q, %q), want (Pan burger, quemado)", product, reason)
	}

	product, reason = SplitTrailingReason("")
	if product != "" || reason != "" {
		t.Errorf("empty text = (%q, %q)", product, reason)
	}
}
