package paginate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/tablescout/browser"
	"github.com/use-agent/tablescout/models"
)

// ErrNoMoreResults means pagination is exhausted: no strategy found a
// control, or the control it found is disabled. It ends the loop normally.
var ErrNoMoreResults = errors.New("no more results")

// clickTimeout bounds the direct click, which waits for the element to
// become interactable.
const clickTimeout = 5 * time.Second

// Paginator advances a page using the first locator that finds a control.
type Paginator struct {
	locators []Locator
	settle   time.Duration
}

// New returns a Paginator trying locators in order and sleeping settle
// after each successful click.
func New(locators []Locator, settle time.Duration) *Paginator {
	return &Paginator{locators: locators, settle: settle}
}

// Next activates the next-page control. It returns ErrNoMoreResults when
// pagination is exhausted, ErrCodePagination when the control cannot be
// clicked and ErrCodeNavigation when a lookup fails unexpectedly.
func (p *Paginator) Next(ctx context.Context, page browser.Page) error {
	for _, loc := range p.locators {
		el, found, err := loc.Locate(ctx, page)
		if err != nil {
			return models.NewScrapeError(
				models.ErrCodeNavigation,
				fmt.Sprintf("next-page lookup (%s) failed", describe(loc)),
				err,
			)
		}
		if !found {
			slog.Debug("next-page strategy found nothing", "strategy", describe(loc))
			continue
		}

		disabled, err := el.Disabled(ctx)
		if err != nil {
			return models.NewScrapeError(models.ErrCodeNavigation, "reading next-page control state failed", err)
		}
		if disabled {
			slog.Info("next-page control disabled", "strategy", describe(loc))
			return ErrNoMoreResults
		}

		if err := activate(ctx, el); err != nil {
			return err
		}
		slog.Debug("next-page control clicked", "strategy", describe(loc))
		return browser.Settle(ctx, p.settle)
	}
	return ErrNoMoreResults
}

// activate clicks el, falling back to a script click when an overlay or
// layout blocks the real one.
func activate(ctx context.Context, el browser.Element) error {
	clickCtx, cancel := context.WithTimeout(ctx, clickTimeout)
	err := el.Click(clickCtx)
	cancel()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return models.NewScrapeError(models.ErrCodeNavigation, "run canceled", ctx.Err())
	}

	slog.Warn("direct click failed, trying script click", "error", err)
	if jsErr := el.ClickJS(ctx); jsErr != nil {
		return models.NewScrapeError(
			models.ErrCodePagination,
			"next-page control could not be activated",
			errors.Join(err, jsErr),
		)
	}
	return nil
}

func describe(loc Locator) string {
	if s, ok := loc.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", loc)
}
