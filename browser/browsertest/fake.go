// Package browsertest provides in-memory browser fakes for tests that
// drive the pagination loop without Chrome.
package browsertest

import (
	"context"

	"github.com/use-agent/tablescout/browser"
)

// Element is a scripted browser.Element.
type Element struct {
	TextValue  string
	Attrs      map[string]string
	IsDisabled bool
	ClickErr   error
	ClickJSErr error
	OnClick    func()

	Clicks   int
	JSClicks int
}

func (e *Element) Text(context.Context) (string, error) { return e.TextValue, nil }

func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *Element) Disabled(context.Context) (bool, error) { return e.IsDisabled, nil }

func (e *Element) Click(context.Context) error {
	e.Clicks++
	if e.ClickErr != nil {
		return e.ClickErr
	}
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) ClickJS(context.Context) error {
	e.JSClicks++
	if e.ClickJSErr != nil {
		return e.ClickJSErr
	}
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

// Page serves Docs in order. Querying NextSelector yields a button that
// advances to the next doc and is disabled on the last one. After each
// advance the first StaleReads HTML reads still return the previous doc.
type Page struct {
	Docs         []string
	NextSelector string
	StaleReads   int
	Elements     map[string][]browser.Element

	NavigateErr error
	WaitErr     error
	QueryErr    error

	Current int
	Visited []string
	Reads   int
	Closed  bool

	stale int
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.Visited = append(p.Visited, url)
	return p.NavigateErr
}

func (p *Page) WaitElement(context.Context, string) error { return p.WaitErr }

func (p *Page) HTML(context.Context) (string, error) {
	p.Reads++
	if p.stale > 0 && p.Current > 0 && p.Current <= len(p.Docs) {
		p.stale--
		return p.Docs[p.Current-1], nil
	}
	if p.Current >= len(p.Docs) {
		return "<html><body></body></html>", nil
	}
	return p.Docs[p.Current], nil
}

func (p *Page) Query(_ context.Context, selector string) ([]browser.Element, error) {
	if p.QueryErr != nil {
		return nil, p.QueryErr
	}
	if p.NextSelector != "" && selector == p.NextSelector {
		return []browser.Element{&Element{
			IsDisabled: p.Current >= len(p.Docs)-1,
			OnClick: func() {
				p.Current++
				p.stale = p.StaleReads
			},
		}}, nil
	}
	return p.Elements[selector], nil
}

func (p *Page) Close() error {
	p.Closed = true
	return nil
}

// Session hands out a single Page.
type Session struct {
	Page       *Page
	NewPageErr error
	Closed     bool
}

func (s *Session) NewPage(context.Context) (browser.Page, error) {
	if s.NewPageErr != nil {
		return nil, s.NewPageErr
	}
	return s.Page, nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

// Opener returns an opener yielding s, or err when err is non-nil.
func Opener(s *Session, err error) browser.Opener {
	return func(context.Context) (browser.Session, error) {
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
