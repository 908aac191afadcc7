// Package browser owns the headless browser process and exposes the small
// page surface the pagination loop needs. Two drivers are available: rod
// (default) and chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/models"
)

// Session is one running browser process. Close must always be called,
// on success and failure paths alike.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error

	// WaitElement blocks until selector matches an element or ctx ends.
	WaitElement(ctx context.Context, selector string) error

	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)

	// Query returns all elements matching selector without waiting.
	// No match is an empty slice, not an error.
	Query(ctx context.Context, selector string) ([]Element, error)

	Close() error
}

// Element is a DOM element handle.
type Element interface {
	Text(ctx context.Context) (string, error)

	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)

	// Disabled reports a disabled control, by property or aria-disabled.
	Disabled(ctx context.Context) (bool, error)

	// Click performs a real mouse click.
	Click(ctx context.Context) error

	// ClickJS calls element.click() in page script, which works through
	// overlays that intercept pointer events.
	ClickJS(ctx context.Context) error
}

// Opener starts a Session. It lets callers swap the real browser for a
// fake in tests.
type Opener func(ctx context.Context) (Session, error)

// NewOpener returns an Opener for the configured backend.
func NewOpener(bcfg config.BrowserConfig, scfg config.ScraperConfig) Opener {
	return func(ctx context.Context) (Session, error) {
		return Open(ctx, bcfg, scfg)
	}
}

// Open launches a browser using the configured backend. A launch failure
// is returned as ErrCodeBrowserLaunch and is never retried.
func Open(ctx context.Context, bcfg config.BrowserConfig, scfg config.ScraperConfig) (Session, error) {
	switch bcfg.Backend {
	case "", config.BackendRod:
		s, err := openRod(ctx, bcfg, scfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendChromedp:
		s, err := openChromedp(ctx, bcfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, models.NewScrapeError(
			models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown browser backend %q", bcfg.Backend),
			nil,
		)
	}
}

// categorizeError wraps raw driver errors into typed ScrapeErrors so
// callers can tell timeouts from other navigation failures.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodePageLoadTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeNavigation, "run canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
