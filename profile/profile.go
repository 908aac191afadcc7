// Package profile describes the sites tablescout knows how to page through:
// where the table lives, how each cell parses, and how to find the
// "next page" control.
package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Kind selects the parse rule for a column.
type Kind string

const (
	KindText          Kind = "text"
	KindNumber        Kind = "number"
	KindSigned        Kind = "signed"
	KindMagnitude     Kind = "magnitude"
	KindPercent       Kind = "percent"
	KindLeadingNumber Kind = "leading_number"
	KindRangeLow      Kind = "range_low"
	KindRangeHigh     Kind = "range_high"
)

var validKinds = map[Kind]struct{}{
	KindText: {}, KindNumber: {}, KindSigned: {}, KindMagnitude: {},
	KindPercent: {}, KindLeadingNumber: {}, KindRangeLow: {}, KindRangeHigh: {},
}

// Numeric reports whether the column parses to numbers.
func (k Kind) Numeric() bool {
	return k != KindText
}

// Locator strategies for the next-page control.
const (
	StrategyAttribute  = "attribute"
	StrategyLabel      = "label"
	StrategyText       = "text"
	StrategyStructural = "structural"
)

// Profile validation errors.
var (
	ErrNoProfiles      = errors.New("at least one profile is required")
	ErrMissingName     = errors.New("name is required")
	ErrMissingURL      = errors.New("url is required")
	ErrMissingRows     = errors.New("row_selector is required")
	ErrNoColumns       = errors.New("at least one column is required")
	ErrNoKeyColumns    = errors.New("at least one key column is required")
	ErrUnknownKey      = errors.New("key column does not name a column")
	ErrInvalidKind     = errors.New("invalid column kind")
	ErrInvalidCell     = errors.New("column cell index must be non-negative")
	ErrInvalidSelector = errors.New("invalid CSS selector")
	ErrInvalidStrategy = errors.New("invalid locator strategy")
	ErrInvalidLimits   = errors.New("target_count and max_pages must be positive")
	ErrMissingPrefix   = errors.New("file_prefix is required")
)

// Column maps one table cell to one record field.
type Column struct {
	Name     string  `yaml:"name" json:"name"`
	Header   string  `yaml:"header" json:"header"`
	Cell     int     `yaml:"cell" json:"cell"`
	Kind     Kind    `yaml:"kind" json:"kind"`
	Width    float64 `yaml:"width" json:"width"`
	Optional bool    `yaml:"optional" json:"optional,omitempty"`
}

// Label returns the spreadsheet header, falling back to the name.
func (c Column) Label() string {
	if c.Header != "" {
		return c.Header
	}
	return c.Name
}

// LocatorSpec declares one next-page lookup strategy.
type LocatorSpec struct {
	Strategy string `yaml:"strategy" json:"strategy"`

	// Selector is the element (attribute) or candidate set (label, text).
	Selector string `yaml:"selector" json:"selector,omitempty"`

	// Attrs are the attributes a label scan inspects.
	Attrs []string `yaml:"attrs" json:"attrs,omitempty"`

	// Contains are case-insensitive phrases for label and text scans.
	Contains []string `yaml:"contains" json:"contains,omitempty"`

	// Container, Item, MinItems and Index drive the structural guess.
	Container string `yaml:"container" json:"container,omitempty"`
	Item      string `yaml:"item" json:"item,omitempty"`
	MinItems  int    `yaml:"min_items" json:"min_items,omitempty"`
	Index     int    `yaml:"index" json:"index,omitempty"`
}

// Profile is one site's table layout and paging rules.
type Profile struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	URL         string `yaml:"url" json:"url"`

	// ConsentSelector is clicked when present, before waiting.
	ConsentSelector string `yaml:"consent_selector" json:"consent_selector,omitempty"`

	// ReadySelector must appear before rows are read.
	ReadySelector string `yaml:"ready_selector" json:"ready_selector"`

	RowSelector  string `yaml:"row_selector" json:"row_selector"`
	CellSelector string `yaml:"cell_selector" json:"cell_selector"`

	// MinCells is the smallest cell count of a well-formed row.
	MinCells int `yaml:"min_cells" json:"min_cells"`

	Columns    []Column `yaml:"columns" json:"columns"`
	KeyColumns []string `yaml:"key_columns" json:"key_columns"`

	Next []LocatorSpec `yaml:"next" json:"next"`

	TargetCount int `yaml:"target_count" json:"target_count"`
	MaxPages    int `yaml:"max_pages" json:"max_pages"`

	SheetName   string `yaml:"sheet_name" json:"sheet_name"`
	FilePrefix  string `yaml:"file_prefix" json:"file_prefix"`
	HeaderColor string `yaml:"header_color" json:"header_color,omitempty"`

	// Summary adds a statistics sheet to the spreadsheet.
	Summary bool `yaml:"summary" json:"summary"`

	// HighlightColumn is reported with its extremes after a run.
	HighlightColumn string `yaml:"highlight_column" json:"highlight_column,omitempty"`
	// LabelColumn names the row in highlight output.
	LabelColumn string `yaml:"label_column" json:"label_column,omitempty"`
}

// ColumnIndex returns the position of the named column, or -1.
func (p *Profile) ColumnIndex(name string) int {
	for i, c := range p.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Headers returns the spreadsheet header row.
func (p *Profile) Headers() []string {
	out := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		out[i] = c.Label()
	}
	return out
}

// Defaults fills unset optional fields.
func (p *Profile) Defaults() {
	if p.CellSelector == "" {
		p.CellSelector = "td"
	}
	if p.ReadySelector == "" {
		p.ReadySelector = p.RowSelector
	}
	if p.SheetName == "" {
		p.SheetName = p.Name
	}
	if p.HeaderColor == "" {
		p.HeaderColor = "4472C4"
	}
	if p.MinCells == 0 {
		for _, c := range p.Columns {
			if !c.Optional && c.Cell+1 > p.MinCells {
				p.MinCells = c.Cell + 1
			}
		}
	}
	for i := range p.Columns {
		if p.Columns[i].Kind == "" {
			p.Columns[i].Kind = KindText
		}
		if p.Columns[i].Width == 0 {
			p.Columns[i].Width = 15
		}
	}
}

// Validate checks the profile for errors a run would otherwise hit late.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return ErrMissingName
	}
	if p.URL == "" {
		return fmt.Errorf("%w: profile %q", ErrMissingURL, p.Name)
	}
	if p.RowSelector == "" {
		return fmt.Errorf("%w: profile %q", ErrMissingRows, p.Name)
	}
	if len(p.Columns) == 0 {
		return fmt.Errorf("%w: profile %q", ErrNoColumns, p.Name)
	}
	if len(p.KeyColumns) == 0 {
		return fmt.Errorf("%w: profile %q", ErrNoKeyColumns, p.Name)
	}
	if p.TargetCount <= 0 || p.MaxPages <= 0 {
		return fmt.Errorf("%w: profile %q", ErrInvalidLimits, p.Name)
	}
	if p.FilePrefix == "" {
		return fmt.Errorf("%w: profile %q", ErrMissingPrefix, p.Name)
	}

	for _, sel := range []string{p.ConsentSelector, p.ReadySelector, p.RowSelector, p.CellSelector} {
		if err := checkSelector(sel); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}

	for i, c := range p.Columns {
		if _, ok := validKinds[c.Kind]; !ok {
			return fmt.Errorf("%w: profile %q column[%d] %q", ErrInvalidKind, p.Name, i, c.Kind)
		}
		if c.Cell < 0 {
			return fmt.Errorf("%w: profile %q column[%d]", ErrInvalidCell, p.Name, i)
		}
	}
	for _, k := range p.KeyColumns {
		if p.ColumnIndex(k) < 0 {
			return fmt.Errorf("%w: profile %q key %q", ErrUnknownKey, p.Name, k)
		}
	}

	for i, loc := range p.Next {
		if err := loc.validate(); err != nil {
			return fmt.Errorf("profile %q next[%d]: %w", p.Name, i, err)
		}
	}
	return nil
}

func (s LocatorSpec) validate() error {
	switch s.Strategy {
	case StrategyAttribute, StrategyLabel, StrategyText:
		if s.Selector == "" {
			return fmt.Errorf("%w: %s needs a selector", ErrInvalidSelector, s.Strategy)
		}
		return checkSelector(s.Selector)
	case StrategyStructural:
		if err := checkSelector(s.Container); err != nil {
			return err
		}
		return checkSelector(s.Item)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, s.Strategy)
	}
}

// checkSelector compiles sel with cascadia. Empty selectors pass.
func checkSelector(sel string) error {
	if strings.TrimSpace(sel) == "" {
		return nil
	}
	if _, err := cascadia.ParseGroup(sel); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSelector, sel, err)
	}
	return nil
}
