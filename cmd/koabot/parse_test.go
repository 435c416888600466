package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRunParse(t *testing.T) {
	out, st := runParse("Tomate 2,5 kg\n\nabc\nREF1 | Leche | 6 | L", "", false)

	if st.Lines != 3 || st.Matched != 2 || st.Failed != 1 {
		t.Errorf("stats = %+v, want 3 lines, 2 matched, 1 failed", st)
	}
	if len(out.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(out.Lines))
	}
	if out.Lines[0].Result == nil || out.Lines[0].Result.Quantity != 2.5 {
		t.Errorf("line 1 = %+v", out.Lines[0])
	}
	if out.Lines[1].Number != 3 || out.Lines[1].ErrorKind != "unrecognized_format" {
		t.Errorf("line 3 = %+v", out.Lines[1])
	}
	if out.Lines[2].Grammar != "separated" {
		t.Errorf("line 4 grammar = %q, want separated", out.Lines[2].Grammar)
	}
}

func TestRunParse_WastageReason(t *testing.T) {
	out, st := runParse("motivo: caducado\nPan 2 ud", "wastage", false)
	if out.Reason != "caducado" {
		t.Errorf("reason = %q, want caducado", out.Reason)
	}
	if st.Lines != 1 {
		t.Errorf("lines = %d, want 1", st.Lines)
	}
}

func TestRunParse_Trace(t *testing.T) {
	out, _ := runParse("Tomate 1 kg", "", true)
	if len(out.Traces) != 1 || len(out.Lines) != 0 {
		t.Fatalf("traces = %d, lines = %d", len(out.Traces), len(out.Lines))
	}
	if out.Traces[0].Result == nil {
		t.Error("trace has no result")
	}
}

func TestParseCmd(t *testing.T) {
	cmd := parseCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader("Tomate 2 kg\n"))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--stats"})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	var got parseOut
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if len(got.Lines) != 1 || got.Lines[0].Result.Product != "Tomate" {
		t.Errorf("got %+v", got)
	}
	if !strings.Contains(stderr.String(), "matched=1") {
		t.Errorf("stats = %q", stderr.String())
	}
}
