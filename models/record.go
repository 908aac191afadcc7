package models

import (
	"encoding/json"
	"strconv"
)

// ValueKind tags the content of a Value.
type ValueKind uint8

const (
	KindAbsent ValueKind = iota
	KindText
	KindNumber
)

// Value is one parsed table cell. An absent value is distinct from zero.
type Value struct {
	Kind ValueKind
	Text string
	Num  float64
}

// Absent returns the absent value.
func Absent() Value { return Value{} }

// Text returns a text value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// IsAbsent reports whether the value is missing.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// Float returns the numeric content and whether the value is a number.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// String renders the value for console output. Absent renders empty.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Interface returns the value as a plain Go value: nil, string or float64.
func (v Value) Interface() any {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return v.Num
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Absent()
	case string:
		*v = Text(t)
	case float64:
		*v = Number(t)
	default:
		*v = Text(string(data))
	}
	return nil
}

// Record is one extracted table row. Values are aligned with the owning
// profile's column order.
type Record struct {
	Key    string  `json:"key"`
	Values []Value `json:"values"`
}

// StopReason explains why a pagination loop ended.
type StopReason string

const (
	StopTarget        StopReason = "target_reached"
	StopMaxPages      StopReason = "max_pages"
	StopNoRows        StopReason = "no_rows"
	StopNoMoreResults StopReason = "no_more_results"
	StopUnchanged     StopReason = "page_unchanged" // a next click left the rows as they were
)

// PaginationState tracks one run's progress. Page is 1-based and only
// ever increases.
type PaginationState struct {
	Page        int        `json:"page"`
	Records     int        `json:"records"`
	TargetCount int        `json:"target_count"`
	MaxPages    int        `json:"max_pages"`
	Stop        StopReason `json:"stop,omitempty"`
}

// Advance moves to the next page.
func (s *PaginationState) Advance() {
	s.Page++
}

// TargetReached reports whether enough records were collected.
func (s *PaginationState) TargetReached() bool {
	return s.TargetCount > 0 && s.Records >= s.TargetCount
}

// AtPageLimit reports whether the current page is the last one allowed.
func (s *PaginationState) AtPageLimit() bool {
	return s.MaxPages > 0 && s.Page >= s.MaxPages
}
