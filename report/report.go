// Package report renders a run as a Markdown document. The document is
// written next to the spreadsheet and is also the input to the AI summary.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
	"github.com/use-agent/tablescout/sink"
	"github.com/use-agent/tablescout/stats"
)

// Data is everything a report shows.
type Data struct {
	Profile   profile.Profile
	Records   []models.Record
	State     models.PaginationState
	Stats     []stats.ColumnStats
	Changes   []stats.ChangeStats
	Highlight *stats.ExtremeStats
	Generated time.Time
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"num": formatNumber,
	"pct": func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) + "%" },
	"ts":  func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
}).Parse(`<html><body>
<h1>{{.Profile.Name}} report</h1>
{{with .Profile.Description}}<p>{{.}}</p>{{end}}
<ul>
<li>Source: {{.Profile.URL}}</li>
<li>Generated: {{ts .Generated}}</li>
<li>Pages visited: {{.State.Page}}</li>
<li>Records: {{len .Records}}</li>
<li>Stopped: {{.State.Stop}}</li>
</ul>
{{if .Stats}}
<h2>Statistics</h2>
<table>
<thead><tr><th>Column</th><th>Mean</th><th>Max</th><th>Min</th><th>Median</th><th>Std Dev</th><th>Count</th></tr></thead>
<tbody>
{{range .Stats}}<tr><td>{{.Label}}</td><td>{{num .Mean}}</td><td>{{num .Max}}</td><td>{{num .Min}}</td><td>{{num .Median}}</td><td>{{num .StdDev}}</td><td>{{.Count}}</td></tr>
{{end}}</tbody>
</table>
{{end}}
{{if .Changes}}
<h2>Change (latest vs earliest)</h2>
<ul>
{{range .Changes}}<li>{{.Label}}: {{pct .Percent}} ({{num .Delta}})</li>
{{end}}</ul>
{{end}}
{{with .Highlight}}
<h2>{{.Label}}</h2>
<ul>
<li>Average: {{num .Mean}}</li>
<li>Highest: {{.Max.Label}} ({{num .Max.Value}})</li>
<li>Lowest: {{.Min.Label}} ({{num .Min.Value}})</li>
</ul>
{{end}}
<h2>Records</h2>
<table>
<thead><tr>{{range .Profile.Columns}}<th>{{.Label}}</th>{{end}}</tr></thead>
<tbody>
{{range .Records}}<tr>{{range .Values}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body></html>`))

// newMarkdownConverter keeps tables as Markdown tables with minimal cell
// padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// Renderer turns report data into Markdown. It is safe for concurrent use.
type Renderer struct {
	conv *converter.Converter
}

func NewRenderer() *Renderer {
	return &Renderer{conv: newMarkdownConverter()}
}

// Render executes the HTML template and converts the result to Markdown.
func (r *Renderer) Render(d Data) (string, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	md, err := r.conv.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("convert report: %w", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}

// Write saves markdown as "<prefix>_<YYYYMMDD_HHMMSS>.md" in dir.
func Write(dir, prefix string, now time.Time, markdown string) (string, error) {
	path := filepath.Join(dir, sink.Filename(prefix, now, "md"))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(markdown), 0o644); err != nil {
		return "", models.NewScrapeError(models.ErrCodeSinkWrite, "writing report", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", models.NewScrapeError(models.ErrCodeSinkWrite, "writing report", err)
	}
	slog.Info("report written", "path", path)
	return path, nil
}

// formatNumber prints integers without decimals and everything else with
// two, both with thousands separators. Halves round away from zero.
func formatNumber(f float64) string {
	f = math.Round(f*100) / 100
	if f == 0 {
		f = 0 // drop the sign of a negative zero
	}
	s := strconv.FormatFloat(f, 'f', 2, 64)
	if f == float64(int64(f)) {
		s = strconv.FormatFloat(f, 'f', 0, 64)
	}
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		return sign + b.String() + "." + frac
	}
	return sign + b.String()
}
