package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/tablescout/models"
)

// WaitReady blocks until selector is present on page, then sleeps settle
// to let client-side rendering finish. If the element does not show up
// within timeout it returns ErrCodePageLoadTimeout. There is no retry.
func WaitReady(ctx context.Context, page Page, selector string, timeout, settle time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := page.WaitElement(waitCtx, selector); err != nil {
		// The parent context ending is a cancellation, not a slow page.
		if ctx.Err() != nil {
			return categorizeError(ctx.Err(), "wait canceled")
		}
		if errors.Is(err, context.DeadlineExceeded) || waitCtx.Err() != nil {
			return models.NewScrapeError(
				models.ErrCodePageLoadTimeout,
				fmt.Sprintf("%q not present after %s", selector, timeout),
				err,
			)
		}
		return categorizeError(err, fmt.Sprintf("waiting for %q failed", selector))
	}
	slog.Debug("page ready", "selector", selector, "elapsed", time.Since(start))

	return Settle(ctx, settle)
}

// Settle sleeps for d unless ctx ends first.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return categorizeError(ctx.Err(), "settle interrupted")
	}
}
