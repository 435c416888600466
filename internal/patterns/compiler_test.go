package patterns

import "testing"

var testFormats = []Format{
	{
		Name:    "qty_unit",
		Pattern: `^(?P<qty>{QTY})\s+(?P<unit>{UNIT})$`,
		Fields:  []string{"qty", "unit"},
	},
	{
		Name:    "word_qty",
		Pattern: `^(?P<word>{WORD})\s+(?P<qty>{QTY})$`,
		Fields:  []string{"word", "qty"},
	},
}

func TestCompiler_Parse(t *testing.T) {
	c := NewCompiler(testFormats, nil).MustCompile()

	tests := []struct {
		text       string
		wantFormat string
		wantQty    string
	}{
		{"10 kg", "qty_unit", "10"},
		{"2,5 Litros", "qty_unit", "2,5"},
		{"0.25 KG", "qty_unit", "0.25"},
		{"Tomate 3", "word_qty", "3"},
		{"Tomate", "", ""},
		{"10 cajas", "", ""},
	}

	for _, tt := range tests {
		m := c.Parse(tt.text)
		if tt.wantFormat == "" {
			if m != nil {
				t.Errorf("Parse(%q) matched %q, want no match", tt.text, m.FormatName)
			}
			continue
		}
		if m == nil {
			t.Errorf("Parse(%q) = nil, want %q", tt.text, tt.wantFormat)
			continue
		}
		if m.FormatName != tt.wantFormat {
			t.Errorf("Parse(%q).FormatName = %q, want %q", tt.text, m.FormatName, tt.wantFormat)
		}
		if got := m.Get("qty"); got != tt.wantQty {
			t.Errorf("Parse(%q) qty = %q, want %q", tt.text, got, tt.wantQty)
		}
	}
}

func TestCompiler_KeepsCase(t *testing.T) {
	c := NewCompiler(testFormats, nil).MustCompile()

	m := c.Parse("12 UD")
	if m == nil {
		t.Fatal("expected match")
	}
	if got := m.Get("unit"); got != "UD" {
		t.Errorf("unit = %q, want original casing UD", got)
	}
}

func TestCompiler_UnitIsWholeWord(t *testing.T) {
	c := NewCompiler(testFormats, nil).MustCompile()

	if m := c.Parse("10 kgs"); m != nil {
		t.Errorf("Parse(10 kgs) matched %q", m.FormatName)
	}
	if m := c.Parse("2 litros"); m == nil || m.Get("unit") != "litros" {
		t.Errorf("Parse(2 litros) = %+v, want unit litros", m)
	}
}

func TestCompiler_LocalPatternOverride(t *testing.T) {
	c := NewCompiler(testFormats, map[string]string{"UNIT": `(?:caja|cajas)`}).MustCompile()

	if m := c.Parse("10 cajas"); m == nil || m.FormatName != "qty_unit" {
		t.Errorf("override not applied: %+v", m)
	}
}

func TestCompiler_ParseFormat(t *testing.T) {
	c := NewCompiler(testFormats, nil).MustCompile()

	if m := c.ParseFormat("word_qty", "10 kg"); m != nil {
		t.Errorf("ParseFormat(word_qty, 10 kg) = %+v, want nil", m)
	}
	if m := c.ParseFormat("missing", "10 kg"); m != nil {
		t.Error("unknown format should not match")
	}
	if m := c.ParseFormat("qty_unit", "10 kg"); m == nil {
		t.Error("ParseFormat(qty_unit, 10 kg) = nil")
	}
}

func TestCompiler_ParseWithTrace(t *testing.T) {
	c := NewCompiler(testFormats, nil).MustCompile()

	trace := c.ParseWithTrace("10 kg")
	if len(trace.Formats) != 2 {
		t.Fatalf("len(Formats) = %d, want 2", len(trace.Formats))
	}
	if !trace.Formats[0].Matched {
		t.Error("qty_unit should match")
	}
	if trace.Formats[1].Matched {
		t.Error("word_qty should not match 10 kg")
	}
	if trace.Match == nil || trace.Match.FormatName != "qty_unit" {
		t.Errorf("Match = %+v", trace.Match)
	}
	if trace.Formats[0].Pattern == testFormats[0].Pattern {
		t.Error("trace pattern should be expanded")
	}
}

func TestCompiler_BadPattern(t *testing.T) {
	c := NewCompiler([]Format{{Name: "bad", Pattern: `(`}}, nil)
	if err := c.Compile(); err == nil {
		t.Error("expected compile error")
	}
}

func TestMatch_GetNil(t *testing.T) {
	var m *Match
	if got := m.Get("x"); got != "" {
		t.Errorf("nil Match Get = %q", got)
	}
}
