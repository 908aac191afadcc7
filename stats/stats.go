// Package stats summarises numeric columns of a run's records.
package stats

import (
	"math"
	"slices"

	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
)

// ColumnStats describes one numeric column. Absent values are skipped,
// so Count may be lower than the record count.
type ColumnStats struct {
	Column string  `json:"column"`
	Label  string  `json:"label"`
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// ChangeStats compares the first listed value against the last one.
// Listings run newest first, so this is latest versus earliest.
type ChangeStats struct {
	Column  string  `json:"column"`
	Label   string  `json:"label"`
	Latest  float64 `json:"latest"`
	Oldest  float64 `json:"oldest"`
	Delta   float64 `json:"delta"`
	Percent float64 `json:"percent"`
}

// Extreme is a value and the label of the row it came from.
type Extreme struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ExtremeStats holds a highlight column's average and extremes.
type ExtremeStats struct {
	Column string  `json:"column"`
	Label  string  `json:"label"`
	Mean   float64 `json:"mean"`
	Max    Extreme `json:"max"`
	Min    Extreme `json:"min"`
}

// Columns computes stats for every numeric column that has at least one
// value, in profile order.
func Columns(p profile.Profile, records []models.Record) []ColumnStats {
	var out []ColumnStats
	for i, col := range p.Columns {
		if !col.Kind.Numeric() {
			continue
		}
		vals := numbers(records, i)
		if len(vals) == 0 {
			continue
		}
		out = append(out, describe(col, vals))
	}
	return out
}

func describe(col profile.Column, vals []float64) ColumnStats {
	sorted := slices.Clone(vals)
	slices.Sort(sorted)

	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	return ColumnStats{
		Column: col.Name,
		Label:  col.Label(),
		Mean:   mean,
		Max:    sorted[len(sorted)-1],
		Min:    sorted[0],
		Median: median(sorted),
		StdDev: stdDev(vals, mean),
		Count:  len(vals),
	}
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stdDev is the sample standard deviation; zero for fewer than two values.
func stdDev(vals []float64, mean float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}

// Change reports the percent change of the first listed value of column
// versus the last one. It needs two values and a non-zero oldest value.
func Change(p profile.Profile, records []models.Record, column string) (ChangeStats, bool) {
	idx := p.ColumnIndex(column)
	if idx < 0 {
		return ChangeStats{}, false
	}
	vals := numbers(records, idx)
	if len(vals) < 2 || vals[len(vals)-1] == 0 {
		return ChangeStats{}, false
	}
	latest, oldest := vals[0], vals[len(vals)-1]
	delta := latest - oldest
	return ChangeStats{
		Column:  column,
		Label:   p.Columns[idx].Label(),
		Latest:  latest,
		Oldest:  oldest,
		Delta:   delta,
		Percent: delta / oldest * 100,
	}, true
}

// Extremes finds the mean, maximum and minimum of column, naming rows by
// labelColumn. Ties keep the first row.
func Extremes(p profile.Profile, records []models.Record, column, labelColumn string) (ExtremeStats, bool) {
	idx := p.ColumnIndex(column)
	if idx < 0 {
		return ExtremeStats{}, false
	}
	labelIdx := p.ColumnIndex(labelColumn)

	var (
		out   = ExtremeStats{Column: column, Label: p.Columns[idx].Label()}
		sum   float64
		count int
	)
	for _, r := range records {
		v, ok := value(r, idx)
		if !ok {
			continue
		}
		label := r.Key
		if labelIdx >= 0 && labelIdx < len(r.Values) {
			label = r.Values[labelIdx].String()
		}
		if count == 0 || v > out.Max.Value {
			out.Max = Extreme{Label: label, Value: v}
		}
		if count == 0 || v < out.Min.Value {
			out.Min = Extreme{Label: label, Value: v}
		}
		sum += v
		count++
	}
	if count == 0 {
		return ExtremeStats{}, false
	}
	out.Mean = sum / float64(count)
	return out, true
}

func numbers(records []models.Record, idx int) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := value(r, idx); ok {
			out = append(out, v)
		}
	}
	return out
}

func value(r models.Record, idx int) (float64, bool) {
	if idx >= len(r.Values) {
		return 0, false
	}
	return r.Values[idx].Float()
}
