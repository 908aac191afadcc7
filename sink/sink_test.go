package sink

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
	"github.com/xuri/excelize/v2"
)

func goldLike() profile.Profile {
	p := profile.Profile{
		Name:       "gold",
		FilePrefix: "금시세",
		SheetName:  "금시세",
		Columns: []profile.Column{
			{Name: "date", Header: "고시날짜", Kind: profile.KindText, Width: 15},
			{Name: "buy", Header: "Buy", Kind: profile.KindNumber, Width: 25},
		},
	}
	p.Defaults()
	return p
}

var fixedNow = time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)

func TestFilename(t *testing.T) {
	if got := Filename("금시세", fixedNow, "xlsx"); got != "금시세_20250102_150405.xlsx" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestXLSX_Write(t *testing.T) {
	dir := t.TempDir()
	p := goldLike()
	records := []models.Record{
		{Key: "2025.01.02", Values: []models.Value{models.Text("2025.01.02"), models.Number(596000)}},
		{Key: "2025.01.01", Values: []models.Value{models.Text("2025.01.01"), models.Absent()}},
	}

	path, err := NewXLSX(dir).Write(p, records, fixedNow)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if want := filepath.Join(dir, "금시세_20250102_150405.xlsx"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("금시세")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	want := [][]string{
		{"고시날짜", "Buy"},
		{"2025.01.02", "596000"},
		{"2025.01.01"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	panes, err := f.GetPanes("금시세")
	if err != nil {
		t.Fatalf("GetPanes() error = %v", err)
	}
	if !panes.Freeze || panes.TopLeftCell != "A2" {
		t.Errorf("panes = %+v, want frozen at A2", panes)
	}

	width, err := f.GetColWidth("금시세", "B")
	if err != nil || width != 25 {
		t.Errorf("column B width = %v (err %v), want 25", width, err)
	}

	if idx, _ := f.GetSheetIndex(summarySheet); idx != -1 {
		t.Error("summary sheet written without Summary set")
	}
}

func TestXLSX_WriteSummary(t *testing.T) {
	p := goldLike()
	p.Summary = true
	records := []models.Record{
		{Key: "d2", Values: []models.Value{models.Text("d2"), models.Number(110)}},
		{Key: "d1", Values: []models.Value{models.Text("d1"), models.Number(100)}},
	}

	path, err := NewXLSX(t.TempDir()).Write(p, records, fixedNow)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	label, _ := f.GetCellValue(summarySheet, "A4")
	count, _ := f.GetCellValue(summarySheet, "G4", excelize.Options{RawCellValue: true})
	if label != "Buy" || count != "2" {
		t.Errorf("stats row = %q ... %q, want Buy ... 2", label, count)
	}
	pct, _ := f.GetCellValue(summarySheet, "B9")
	if pct != "10.00%" {
		t.Errorf("change = %q, want 10.00%%", pct)
	}
}

func TestXLSX_NoRecords(t *testing.T) {
	dir := t.TempDir()
	_, err := NewXLSX(dir).Write(goldLike(), nil, fixedNow)
	if !models.HasCode(err, models.ErrCodeNoRecords) {
		t.Fatalf("Write() error = %v, want %s", err, models.ErrCodeNoRecords)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dir has %d entries, want none", len(entries))
	}
}

func TestXLSX_WriteFailureLeavesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	_, err := NewXLSX(dir).Write(goldLike(), []models.Record{
		{Key: "a", Values: []models.Value{models.Text("a"), models.Number(1)}},
	}, fixedNow)
	if !models.HasCode(err, models.ErrCodeSinkWrite) {
		t.Fatalf("Write() error = %v, want %s", err, models.ErrCodeSinkWrite)
	}
}

func TestSheetName(t *testing.T) {
	tests := map[string]string{
		"Stock Gainers":                       "Stock Gainers",
		"a/b:c":                               "a_b_c",
		"":                                    "Sheet1",
		"abcdefghijklmnopqrstuvwxyz0123456789": "abcdefghijklmnopqrstuvwxyz01234",
	}
	for in, want := range tests {
		if got := sheetName(in); got != want {
			t.Errorf("sheetName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewDocument(t *testing.T) {
	p := goldLike()
	doc := NewDocument(p, models.Record{
		Key:    "2025.01.02",
		Values: []models.Value{models.Text("2025.01.02"), models.Absent()},
	}, fixedNow)

	want := map[string]any{"date": "2025.01.02"}
	if diff := cmp.Diff(want, doc.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if doc.Profile != "gold" || doc.Key != "2025.01.02" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestNewElastic_Disabled(t *testing.T) {
	e, err := NewElastic(config.ElasticConfig{IndexPrefix: "tablescout"})
	if err != nil || e != nil {
		t.Fatalf("NewElastic() = %v, %v; want nil, nil", e, err)
	}
}
