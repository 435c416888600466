package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"koabot/internal/item"
	"koabot/internal/itemparser"
)

// lineOut is the JSON record printed for each input line.
type lineOut struct {
	Number    int        `json:"number"`
	Text      string     `json:"text"`
	Grammar   string     `json:"grammar,omitempty"`
	Result    *item.Line `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	ErrorKind string     `json:"error_kind,omitempty"`
}

type parseOut struct {
	Reason string              `json:"reason,omitempty"`
	Lines  []lineOut           `json:"lines,omitempty"`
	Traces []*itemparser.Trace `json:"traces,omitempty"`
}

type parseStats struct {
	Lines   int
	Matched int
	Failed  int
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse item lines and print them as JSON",
		Long: `Parse item lines, one per line, from a file or stdin.

Example:
  echo "Tomate 2,5 kg" | koabot parse --pretty
  koabot parse -i merma.txt --kind wastage --stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath, _ := cmd.Flags().GetString("input")
			outPath, _ := cmd.Flags().GetString("output")
			pretty, _ := cmd.Flags().GetBool("pretty")
			trace, _ := cmd.Flags().GetBool("trace")
			kind, _ := cmd.Flags().GetString("kind")
			showStats, _ := cmd.Flags().GetBool("stats")

			var r io.Reader = cmd.InOrStdin()
			if inPath != "" {
				f, err := os.Open(inPath)
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				r = f
			}

			text, err := readAll(r)
			if err != nil {
				return fmt.Errorf("input read error: %w", err)
			}

			out, st := runParse(text, kind, trace)

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			enc, err := marshalJSON(out, pretty)
			if err != nil {
				return fmt.Errorf("JSON encode error: %w", err)
			}
			_, _ = w.Write(enc)
			_, _ = w.Write([]byte("\n"))

			if showStats {
				fmt.Fprintf(cmd.ErrOrStderr(), "stats: lines=%d matched=%d failed=%d\n", st.Lines, st.Matched, st.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringP("input", "i", "", "Input file (default: stdin)")
	cmd.Flags().StringP("output", "o", "", "Output JSON file (default: stdout)")
	cmd.Flags().Bool("pretty", false, "Pretty-print JSON output")
	cmd.Flags().Bool("trace", false, "Show how every grammar handled each line")
	cmd.Flags().String("kind", "", `Operation kind; "wastage" reads a "motivo:" line`)
	cmd.Flags().Bool("stats", false, "Print basic counters to stderr")
	return cmd
}

func readAll(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return strings.Join(lines, "\n"), scanner.Err()
}

func runParse(text, kind string, trace bool) (parseOut, parseStats) {
	var out parseOut
	var st parseStats

	if kind == "wastage" {
		text, out.Reason = itemparser.SplitReason(text)
	}

	p := itemparser.Default()
	for _, o := range p.ParseAll(text) {
		st.Lines++
		if o.Err != nil {
			st.Failed++
		} else {
			st.Matched++
		}

		if trace {
			out.Traces = append(out.Traces, p.Trace(o.Text))
			continue
		}
		lo := lineOut{Number: o.Number, Text: o.Text, Grammar: o.Grammar, Result: o.Line}
		if o.Err != nil {
			lo.Error = o.Err.Error()
			lo.ErrorKind = item.KindName(o.Err)
		}
		out.Lines = append(out.Lines, lo)
	}
	return out, st
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
