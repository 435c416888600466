package item

import (
	"errors"
	"strings"
	"testing"

	"koabot/internal/units"
)

func TestBuild(t *testing.T) {
	line, err := Build(&Fields{
		Ref:      " ",
		Product:  " Tomate ",
		Quantity: "2,5",
		Unit:     "Kilos",
	}, units.Spanish)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if line.Ref != UnknownRef {
		t.Errorf("Ref = %q, want %q", line.Ref, UnknownRef)
	}
	if line.Product != "Tomate" {
		t.Errorf("Product = %q, want %q", line.Product, "Tomate")
	}
	if line.Quantity != 2.5 {
		t.Errorf("Quantity = %v, want 2.5", line.Quantity)
	}
	if line.Unit != units.Kilogram {
		t.Errorf("Unit = %q, want kg", line.Unit)
	}
	if line.Reason != "" {
		t.Errorf("Reason = %q, want empty", line.Reason)
	}
}

func TestBuild_CheckOrder(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
		want   error
		msg    string
	}{
		{"product first", Fields{Quantity: "x", Unit: "y"}, ErrMissingProduct, "producto"},
		{"then quantity", Fields{Product: "Tomate", Quantity: "abc", Unit: "y"}, ErrInvalidQuantity, "Cantidad"},
		{"empty quantity", Fields{Product: "Tomate", Quantity: "", Unit: "kg"}, ErrInvalidQuantity, "Cantidad"},
		{"then unit", Fields{Product: "Tomate", Quantity: "10", Unit: "invalid"}, ErrInvalidUnit, "Unidad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(&tt.fields, units.Spanish)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Build error = %v, want %v", err, tt.want)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("message %q does not contain %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestParseError_Messages(t *testing.T) {
	err := NewError(ErrInvalidUnit, "cajas")
	if !strings.Contains(err.Error(), `"cajas"`) {
		t.Errorf("message %q does not quote the token", err.Error())
	}

	err = NewError(ErrUnrecognizedFormat, "")
	for _, example := range []string{"ABC123; Tomate; 10; kg", "Tomate 10 kg", "10 kg Tomate", "PAN010 Pan burger 12 ud"} {
		if !strings.Contains(err.Error(), example) {
			t.Errorf("unrecognized-format message misses example %q", example)
		}
	}

	if !strings.HasPrefix(NewError(ErrEmptyLine, "").Error(), "Línea vacía") {
		t.Error("empty-line message should start with Línea vacía")
	}
}

func TestKindName(t *testing.T) {
	if got := KindName(NewError(ErrTooFewFields, "")); got != "too_few_fields" {
		t.Errorf("KindName = %q", got)
	}
	if got := KindName(errors.New("boom")); got != "" {
		t.Errorf("KindName(plain error) = %q, want empty", got)
	}
}
