package extract

import (
	"log/slog"
	"strings"

	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
)

// Extractor turns cell texts into records using a profile's columns.
type Extractor struct {
	columns  []profile.Column
	keyIdx   []int
	minCells int
}

// NewExtractor builds an extractor for p. p must already be validated.
func NewExtractor(p profile.Profile) *Extractor {
	keyIdx := make([]int, 0, len(p.KeyColumns))
	for _, k := range p.KeyColumns {
		if i := p.ColumnIndex(k); i >= 0 {
			keyIdx = append(keyIdx, i)
		}
	}
	return &Extractor{
		columns:  p.Columns,
		keyIdx:   keyIdx,
		minCells: p.MinCells,
	}
}

// Extract converts one row. It reports false for malformed rows: fewer
// cells than the minimum, or no key text at all. A field that fails to parse
// is left absent and never drops the row.
func (e *Extractor) Extract(cells []string) (models.Record, bool) {
	if len(cells) < e.minCells {
		return models.Record{}, false
	}

	values := make([]models.Value, len(e.columns))
	for i, col := range e.columns {
		if col.Cell >= len(cells) {
			values[i] = models.Absent()
			continue
		}
		values[i] = ParseCell(col.Kind, cells[col.Cell])
		if values[i].IsAbsent() && !IsPlaceholder(cells[col.Cell]) {
			slog.Debug("cell did not parse", "column", col.Name, "text", cells[col.Cell])
		}
	}

	key, ok := e.key(cells)
	if !ok {
		return models.Record{}, false
	}
	return models.Record{Key: key, Values: values}, true
}

// key joins the key columns' cell text as the site shows it, whitespace
// collapsed. A part may be a placeholder such as "--"; the key is empty
// only when no part holds real text.
func (e *Extractor) key(cells []string) (string, bool) {
	parts := make([]string, 0, len(e.keyIdx))
	found := false
	for _, i := range e.keyIdx {
		var s string
		if c := e.columns[i].Cell; c < len(cells) {
			s = strings.Join(strings.Fields(cells[c]), " ")
		}
		if !IsPlaceholder(s) {
			found = true
		}
		parts = append(parts, s)
	}
	if !found {
		return "", false
	}
	return strings.Join(parts, "|"), true
}

// ParseCell applies the rule for kind to one cell's text.
func ParseCell(kind profile.Kind, text string) models.Value {
	var (
		f  float64
		ok bool
	)
	switch kind {
	case profile.KindText:
		s := strings.Join(strings.Fields(text), " ")
		if IsPlaceholder(s) {
			return models.Absent()
		}
		return models.Text(s)
	case profile.KindNumber, profile.KindSigned:
		f, ok = ParseNumber(text)
	case profile.KindMagnitude:
		f, ok = ParseMagnitude(text)
	case profile.KindPercent:
		f, ok = ParsePercent(text)
	case profile.KindLeadingNumber:
		f, ok = ParseLeadingNumber(text)
	case profile.KindRangeLow:
		f, ok, _, _ = ParseRange(text)
	case profile.KindRangeHigh:
		_, _, f, ok = ParseRange(text)
	}
	if !ok {
		return models.Absent()
	}
	return models.Number(f)
}
