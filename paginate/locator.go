// Package paginate finds and activates a table's "next page" control.
//
// Lookup is an ordered chain of independent strategies. Each one either
// finds an element, reports expected absence, or fails. Only the last case
// is an error.
package paginate

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/tablescout/browser"
	"github.com/use-agent/tablescout/profile"
)

// Locator is one lookup strategy for the next-page control.
// found is false with a nil error when the strategy simply matches nothing.
type Locator interface {
	Locate(ctx context.Context, page browser.Page) (el browser.Element, found bool, err error)
}

// AttributeLocator picks the first element matching a CSS selector.
type AttributeLocator struct {
	Selector string
}

func (l AttributeLocator) Locate(ctx context.Context, page browser.Page) (browser.Element, bool, error) {
	els, err := page.Query(ctx, l.Selector)
	if err != nil {
		return nil, false, err
	}
	if len(els) == 0 {
		return nil, false, nil
	}
	return els[0], true, nil
}

func (l AttributeLocator) String() string { return "attribute " + l.Selector }

// LabelLocator scans candidates for an accessible label containing one of
// the phrases.
type LabelLocator struct {
	Selector string
	Attrs    []string
	Contains []string
}

func (l LabelLocator) Locate(ctx context.Context, page browser.Page) (browser.Element, bool, error) {
	els, err := page.Query(ctx, l.Selector)
	if err != nil {
		return nil, false, err
	}
	attrs := l.Attrs
	if len(attrs) == 0 {
		attrs = []string{"aria-label", "title"}
	}
	for _, el := range els {
		for _, name := range attrs {
			v, ok, err := el.Attribute(ctx, name)
			if err != nil {
				return nil, false, err
			}
			if ok && containsAny(v, l.Contains) {
				return el, true, nil
			}
		}
	}
	return nil, false, nil
}

func (l LabelLocator) String() string { return "label " + l.Selector }

// TextLocator scans candidates for visible text containing one of the
// phrases.
type TextLocator struct {
	Selector string
	Contains []string
}

func (l TextLocator) Locate(ctx context.Context, page browser.Page) (browser.Element, bool, error) {
	els, err := page.Query(ctx, l.Selector)
	if err != nil {
		return nil, false, err
	}
	for _, el := range els {
		text, err := el.Text(ctx)
		if err != nil {
			return nil, false, err
		}
		if containsAny(text, l.Contains) {
			return el, true, nil
		}
	}
	return nil, false, nil
}

func (l TextLocator) String() string { return "text " + l.Selector }

// StructuralLocator guesses the control by position among a pagination
// container's items, for widgets that carry no label at all. The guess is
// only made when at least MinItems items exist.
type StructuralLocator struct {
	Container string
	Item      string
	MinItems  int
	Index     int
}

func (l StructuralLocator) Locate(ctx context.Context, page browser.Page) (browser.Element, bool, error) {
	els, err := page.Query(ctx, descendantSelector(l.Container, l.Item))
	if err != nil {
		return nil, false, err
	}
	if len(els) < l.MinItems || l.Index < 0 || l.Index >= len(els) {
		return nil, false, nil
	}
	return els[l.Index], true, nil
}

func (l StructuralLocator) String() string {
	return fmt.Sprintf("structural %s > %s[%d]", l.Container, l.Item, l.Index)
}

// FromSpecs builds locators in declaration order.
func FromSpecs(specs []profile.LocatorSpec) ([]Locator, error) {
	out := make([]Locator, 0, len(specs))
	for i, s := range specs {
		switch s.Strategy {
		case profile.StrategyAttribute:
			out = append(out, AttributeLocator{Selector: s.Selector})
		case profile.StrategyLabel:
			out = append(out, LabelLocator{Selector: s.Selector, Attrs: s.Attrs, Contains: s.Contains})
		case profile.StrategyText:
			out = append(out, TextLocator{Selector: s.Selector, Contains: s.Contains})
		case profile.StrategyStructural:
			item := s.Item
			if item == "" {
				item = "button"
			}
			out = append(out, StructuralLocator{Container: s.Container, Item: item, MinItems: s.MinItems, Index: s.Index})
		default:
			return nil, fmt.Errorf("next[%d]: %w: %q", i, profile.ErrInvalidStrategy, s.Strategy)
		}
	}
	return out, nil
}

func containsAny(s string, phrases []string) bool {
	s = strings.ToLower(s)
	for _, p := range phrases {
		if p != "" && strings.Contains(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// descendantSelector scopes every item selector under every container
// selector: "a, b" and "i" give "a i, b i".
func descendantSelector(container, item string) string {
	var parts []string
	for _, c := range splitGroup(container) {
		for _, i := range splitGroup(item) {
			parts = append(parts, c+" "+i)
		}
	}
	return strings.Join(parts, ", ")
}

// splitGroup splits a selector group on top-level commas, leaving commas
// inside brackets, parentheses and quotes alone.
func splitGroup(sel string) []string {
	var (
		out   []string
		depth int
		quote rune
		start int
	)
	for i, r := range sel {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			depth--
		case r == ',' && depth == 0:
			if s := strings.TrimSpace(sel[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(sel[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
