package stats

import (
	"math"
	"testing"

	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
)

func testProfile() profile.Profile {
	return profile.Profile{
		Columns: []profile.Column{
			{Name: "date", Kind: profile.KindText},
			{Name: "price", Header: "Price", Kind: profile.KindNumber},
		},
	}
}

func rec(date string, price models.Value) models.Record {
	return models.Record{Key: date, Values: []models.Value{models.Text(date), price}}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestColumns(t *testing.T) {
	records := []models.Record{
		rec("d1", models.Number(4)),
		rec("d2", models.Absent()),
		rec("d3", models.Number(2)),
		rec("d4", models.Number(9)),
		rec("d5", models.Number(1)),
	}
	got := Columns(testProfile(), records)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (text columns skipped)", len(got))
	}
	s := got[0]
	if s.Count != 4 {
		t.Errorf("Count = %d, want 4", s.Count)
	}
	if !near(s.Mean, 4) || s.Max != 9 || s.Min != 1 || !near(s.Median, 3) {
		t.Errorf("stats = %+v", s)
	}
	// sample variance of 4,2,9,1 around 4: (0+4+25+9)/3
	if !near(s.StdDev, math.Sqrt(38.0/3)) {
		t.Errorf("StdDev = %v", s.StdDev)
	}
	if s.Label != "Price" {
		t.Errorf("Label = %q", s.Label)
	}
}

func TestColumns_AllAbsent(t *testing.T) {
	got := Columns(testProfile(), []models.Record{rec("d1", models.Absent())})
	if len(got) != 0 {
		t.Errorf("got %d stats, want none", len(got))
	}
}

func TestChange(t *testing.T) {
	records := []models.Record{
		rec("2025.01.03", models.Number(110)),
		rec("2025.01.02", models.Absent()),
		rec("2025.01.01", models.Number(100)),
	}
	c, ok := Change(testProfile(), records, "price")
	if !ok {
		t.Fatal("Change() ok = false")
	}
	if c.Latest != 110 || c.Oldest != 100 || c.Delta != 10 || !near(c.Percent, 10) {
		t.Errorf("Change() = %+v", c)
	}

	if _, ok := Change(testProfile(), records[:1], "price"); ok {
		t.Error("Change() with one value ok = true")
	}
	if _, ok := Change(testProfile(), records, "missing"); ok {
		t.Error("Change() on unknown column ok = true")
	}
}

func TestExtremes(t *testing.T) {
	records := []models.Record{
		rec("AAA", models.Number(12.5)),
		rec("BBB", models.Number(30)),
		rec("CCC", models.Absent()),
		rec("DDD", models.Number(7.5)),
	}
	e, ok := Extremes(testProfile(), records, "price", "date")
	if !ok {
		t.Fatal("Extremes() ok = false")
	}
	if e.Max.Label != "BBB" || e.Max.Value != 30 {
		t.Errorf("Max = %+v", e.Max)
	}
	if e.Min.Label != "DDD" || e.Min.Value != 7.5 {
		t.Errorf("Min = %+v", e.Min)
	}
	if !near(e.Mean, 50.0/3) {
		t.Errorf("Mean = %v", e.Mean)
	}
}
