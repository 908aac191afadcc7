package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/use-agent/tablescout/profile"
	"github.com/use-agent/tablescout/scraper"
)

const (
	previewRows = 10
	cellWidth   = 24
)

// truncateCell shortens s to cellWidth terminal columns. Hangul and other
// wide runes count double.
func truncateCell(s string) string {
	return runewidth.Truncate(s, cellWidth, "…")
}

func printProgress(w io.Writer, ev scraper.Event) {
	switch ev.Type {
	case scraper.EventStage:
		fmt.Fprintf(w, "› %s\n", ev.Stage)
	case scraper.EventPage:
		fmt.Fprintf(w, "  page %d: +%d records (%d/%d)\n",
			ev.State.Page, ev.Added, ev.State.Records, ev.State.TargetCount)
	case scraper.EventFailed:
		fmt.Fprintf(w, "✗ %v\n", ev.Err)
	}
}

func printOutcome(w io.Writer, prof profile.Profile, out *scraper.Outcome) {
	fmt.Fprintf(w, "\n%s: %d records from %d page(s), stopped: %s, took %s\n\n",
		prof.Name, len(out.Records), out.State.Page, out.State.Stop, out.Duration().Round(time.Second))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	header := table.Row{}
	for _, h := range prof.Headers() {
		header = append(header, truncateCell(h))
	}
	t.AppendHeader(header)
	for _, rec := range out.Records[:min(previewRows, len(out.Records))] {
		row := table.Row{}
		for _, v := range rec.Values {
			row = append(row, truncateCell(v.String()))
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("showing %d of %d", min(previewRows, len(out.Records)), len(out.Records))})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(out.Stats) > 0 {
		st := table.NewWriter()
		st.SetOutputMirror(w)
		st.AppendHeader(table.Row{"Column", "Mean", "Median", "Min", "Max", "Std Dev", "Count"})
		for _, s := range out.Stats {
			st.AppendRow(table.Row{
				truncateCell(s.Label),
				fmt.Sprintf("%.2f", s.Mean),
				fmt.Sprintf("%.2f", s.Median),
				fmt.Sprintf("%.2f", s.Min),
				fmt.Sprintf("%.2f", s.Max),
				fmt.Sprintf("%.2f", s.StdDev),
				s.Count,
			})
		}
		st.SetStyle(table.StyleRounded)
		fmt.Fprintln(w)
		st.Render()
	}

	for _, c := range out.Changes {
		fmt.Fprintf(w, "%s: %.2f%% (%+.0f) latest vs earliest\n", c.Label, c.Percent, c.Delta)
	}

	if hl := out.Highlight; hl != nil {
		fmt.Fprintf(w, "\n%s\n  average: %.2f\n  highest: %s (%.2f)\n  lowest:  %s (%.2f)\n",
			hl.Label, hl.Mean, hl.Max.Label, hl.Max.Value, hl.Min.Label, hl.Min.Value)
	}

	if out.Summary != nil {
		fmt.Fprintf(w, "\nSummary (%s):\n%s\n", out.Summary.Model, out.Summary.Text)
	}
	for _, note := range []struct{ what, err string }{
		{"index", out.IndexError},
		{"summary", out.SummaryError},
		{"mail", out.MailError},
	} {
		if note.err != "" {
			fmt.Fprintf(w, "warning: %s failed: %s\n", note.what, note.err)
		}
	}
	if out.Indexed > 0 {
		fmt.Fprintf(w, "indexed %d documents\n", out.Indexed)
	}

	fmt.Fprintf(w, "\nsaved %s\n", out.File)
	if out.ReportFile != "" {
		fmt.Fprintf(w, "saved %s\n", out.ReportFile)
	}
}
