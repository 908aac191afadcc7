// Package sink writes a run's records out: a formatted spreadsheet on
// disk and, optionally, an Elasticsearch index.
package sink

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
	"github.com/use-agent/tablescout/stats"
	"github.com/xuri/excelize/v2"
)

// TimestampLayout is the suffix format of every generated filename.
const TimestampLayout = "20060102_150405"

const (
	summarySheet     = "Summary"
	summaryTitleFill = "4472C4"
	summaryStatFill  = "D9E1F2"
	summaryNoteFill  = "70AD47"
)

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// XLSX writes one spreadsheet per run into Dir.
type XLSX struct {
	Dir string
}

// NewXLSX returns a writer targeting dir.
func NewXLSX(dir string) *XLSX {
	if dir == "" {
		dir = "."
	}
	return &XLSX{Dir: dir}
}

// Filename returns "<prefix>_<YYYYMMDD_HHMMSS>.<ext>".
func Filename(prefix string, now time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format(TimestampLayout), ext)
}

// Write saves records as a single formatted sheet, plus a summary sheet
// when the profile asks for one. Zero records is ErrCodeNoRecords and
// writes nothing. The file appears atomically or not at all.
func (x *XLSX) Write(p profile.Profile, records []models.Record, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", models.NewScrapeError(models.ErrCodeNoRecords, "no records to write", nil)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(p.SheetName)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", sinkError("renaming sheet", err)
	}
	if err := writeRecords(f, sheet, p, records); err != nil {
		return "", sinkError("writing records", err)
	}
	if p.Summary {
		if err := writeSummary(f, p, records); err != nil {
			return "", sinkError("writing summary", err)
		}
	}

	path := filepath.Join(x.Dir, Filename(p.FilePrefix, now, "xlsx"))
	if err := saveAtomic(f, path); err != nil {
		return "", sinkError("saving workbook", err)
	}
	slog.Info("spreadsheet written", "profile", p.Name, "path", path, "records", len(records))
	return path, nil
}

func writeRecords(f *excelize.File, sheet string, p profile.Profile, records []models.Record) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{p.HeaderColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}
	dataStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}

	for i, h := range p.Headers() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, rec := range records {
		for c, v := range rec.Values {
			if v.IsAbsent() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v.Interface()); err != nil {
				return err
			}
		}
	}

	lastCol := len(p.Columns)
	headerEnd, _ := excelize.CoordinatesToCellName(lastCol, 1)
	if err := f.SetCellStyle(sheet, "A1", headerEnd, headerStyle); err != nil {
		return err
	}
	dataEnd, _ := excelize.CoordinatesToCellName(lastCol, len(records)+1)
	if err := f.SetCellStyle(sheet, "A2", dataEnd, dataStyle); err != nil {
		return err
	}

	for i, col := range p.Columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, col.Width); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// writeSummary adds a sheet with per-column statistics and the change of
// each numeric column from the oldest to the latest listed row.
func writeSummary(f *excelize.File, p profile.Profile, records []models.Record) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 14},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{summaryTitleFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	noteStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{summaryNoteFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{p.HeaderColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}
	statStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{summaryStatFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
		NumFmt:    4, // #,##0.00
	})
	if err != nil {
		return err
	}

	sh := summarySheet
	set := func(col, row int, v any) error {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		return f.SetCellValue(sh, cell, v)
	}

	if err := set(1, 1, "Statistics"); err != nil {
		return err
	}
	if err := f.MergeCell(sh, "A1", "G1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sh, "A1", "G1", titleStyle); err != nil {
		return err
	}

	headers := []string{"Column", "Mean", "Max", "Min", "Median", "Std Dev", "Count"}
	for i, h := range headers {
		if err := set(i+1, 3, h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sh, "A3", "G3", headerStyle); err != nil {
		return err
	}

	row := 4
	for _, s := range stats.Columns(p, records) {
		vals := []any{s.Label, s.Mean, s.Max, s.Min, s.Median, s.StdDev, s.Count}
		for i, v := range vals {
			if err := set(i+1, row, v); err != nil {
				return err
			}
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(7, row)
		if err := f.SetCellStyle(sh, start, end, statStyle); err != nil {
			return err
		}
		row++
	}

	row += 2
	noteStart, _ := excelize.CoordinatesToCellName(1, row)
	noteEnd, _ := excelize.CoordinatesToCellName(7, row)
	if err := set(1, row, "Change (latest vs earliest)"); err != nil {
		return err
	}
	if err := f.MergeCell(sh, noteStart, noteEnd); err != nil {
		return err
	}
	if err := f.SetCellStyle(sh, noteStart, noteEnd, noteStyle); err != nil {
		return err
	}
	row += 2
	for _, col := range p.Columns {
		if !col.Kind.Numeric() {
			continue
		}
		c, ok := stats.Change(p, records, col.Name)
		if !ok {
			continue
		}
		if err := set(1, row, c.Label); err != nil {
			return err
		}
		if err := set(2, row, fmt.Sprintf("%.2f%%", c.Percent)); err != nil {
			return err
		}
		if err := set(3, row, fmt.Sprintf("(%+.0f)", c.Delta)); err != nil {
			return err
		}
		row++
	}

	if err := f.SetColWidth(sh, "A", "A", 30); err != nil {
		return err
	}
	return f.SetColWidth(sh, "B", "G", 15)
}

// saveAtomic writes the workbook to a temp file beside path and renames it
// into place. The temp file is removed on any failure.
func saveAtomic(f *excelize.File, path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tablescout-*.xlsx")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = f.Write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// sheetName trims a name to Excel's limits: 31 characters, none of : \ / ? * [ ].
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	if name == "" {
		name = "Sheet1"
	}
	return name
}

func sinkError(msg string, err error) *models.ScrapeError {
	return models.NewScrapeError(models.ErrCodeSinkWrite, msg, err)
}
