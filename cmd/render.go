package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/gridfunnel/gridfunnel/funnel"
)

// resolveFormat turns "auto" into table for terminals and json otherwise.
func resolveFormat(format string, out *os.File) string {
	if format != "auto" {
		return format
	}
	if term.IsTerminal(int(out.Fd())) {
		return "table"
	}
	return "json"
}

// renderReport writes rep to w as indented JSON or a human-readable table.
func renderReport(w io.Writer, rep *funnel.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		return nil
	case "table":
		return renderTable(w, rep)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func renderTable(w io.Writer, rep *funnel.Report) error {
	fmt.Fprintf(w, "=== Run %s (%s) ===\n", rep.RunID, rep.SchemaVersion)
	if a := rep.Admission; a != nil {
		fmt.Fprintf(w, "Gate: %s  estimated %s / budget %s  subsample %.4f -> %.4f  (%s params)\n",
			a.Action, humanize.IBytes(uint64(a.EstimatedBytes)), humanize.IBytes(uint64(a.BudgetBytes)),
			a.OriginalSubsample, a.FinalSubsample, humanize.Comma(a.EffectiveParams))
	}
	s := rep.Summary
	fmt.Fprintf(w, "Rows: %s scored, %s rejected, %d/%d selected, %d confirmed\n\n",
		humanize.Comma(int64(s.Rows)), humanize.Comma(int64(s.Rejected)), s.Selected, s.K, s.Confirmed)

	keys := confirmKeys(rep.TopK)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"RANK", "ROW", "PARAMS", "PROXY"}
	for _, k := range keys {
		header = append(header, strings.ToUpper(k))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, e := range rep.TopK {
		cells := []string{
			fmt.Sprint(e.Rank),
			fmt.Sprint(e.SourceRow),
			formatParams(e.Params),
			fmt.Sprintf("%.4f", e.Proxy),
		}
		for _, k := range keys {
			if v, ok := e.Confirm[k]; ok {
				cells = append(cells, fmt.Sprintf("%.4g", v))
			} else {
				cells = append(cells, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// confirmKeys returns the union of confirmation metric names, sorted.
func confirmKeys(entries []funnel.RankedEntry) []string {
	seen := map[string]bool{}
	for _, e := range entries {
		for k := range e.Confirm {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatParams(p []float64) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ",")
}
