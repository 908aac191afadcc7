// Package scraper runs the paginated table loop: open a browser, wait for
// the table, extract and deduplicate rows, click "next", repeat.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/tablescout/browser"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/dedup"
	"github.com/use-agent/tablescout/extract"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/paginate"
	"github.com/use-agent/tablescout/profile"
	"github.com/use-agent/tablescout/simhash"
)

// overlapBits is the SimHash distance under which a page counts as mostly
// repeating the previous one.
const overlapBits = 3

// Scraper runs one profile at a time per call. It holds no browser
// between runs; each Run launches and releases its own.
type Scraper struct {
	cfg  config.ScraperConfig
	open browser.Opener
}

// New returns a Scraper launching browsers through open.
func New(cfg *config.Config, open browser.Opener) *Scraper {
	return &Scraper{cfg: cfg.Scraper, open: open}
}

// Result is what one pagination loop collected.
type Result struct {
	Profile    string                 `json:"profile"`
	Records    []models.Record        `json:"records"`
	State      models.PaginationState `json:"state"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

// Run pages through p's table until the target count, the page ceiling,
// an empty page or the end of pagination. Progress is sent on events,
// which may be nil. Run never writes files.
//
// Loop order per page:
//
//  1. read rows (none: stop with no_rows; same rows as the previous page
//     after one re-read: stop with page_unchanged)
//  2. extract, drop malformed and duplicate rows, stop at the target
//  3. report progress
//  4. stop at the target or the page ceiling
//  5. click next (exhausted: stop with no_more_results)
func (s *Scraper) Run(ctx context.Context, p profile.Profile, events chan<- Event) (*Result, error) {
	started := time.Now()

	locators, err := paginate.FromSpecs(p.Next)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidProfile, err.Error(), err)
	}

	sess, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			slog.Warn("browser close failed", "error", cerr)
		}
	}()

	page, err := sess.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	slog.Info("run started", "profile", p.Name, "url", p.URL)

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	err = page.Navigate(navCtx, p.URL)
	cancel()
	if err != nil {
		return nil, err
	}

	s.dismissConsent(ctx, page, p.ConsentSelector)

	if err := browser.WaitReady(ctx, page, p.ReadySelector, s.cfg.ReadyTimeout, s.cfg.SettleDelay); err != nil {
		return nil, err
	}

	var (
		ext       = extract.NewExtractor(p)
		seen      = dedup.New()
		paginator = paginate.New(locators, s.cfg.ClickSettle)
		records    []models.Record
		lastDigest uint64
		lastPrint  uint64
		reread     bool
		state      = models.PaginationState{
			Page:        1,
			TargetCount: p.TargetCount,
			MaxPages:    p.MaxPages,
		}
	)

	for {
		html, err := page.HTML(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := extract.TableRows(html, p.RowSelector, p.CellSelector)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeNavigation, "reading table rows failed", err)
		}
		if len(rows) == 0 {
			slog.Info("no rows on page", "profile", p.Name, "page", state.Page)
			state.Stop = models.StopNoRows
			break
		}
		digest, fp := simhash.Digest(rows), simhash.Rows(rows)
		if state.Page > 1 && digest == lastDigest {
			// the table may still be rendering; give it one more settle
			if !reread {
				reread = true
				slog.Info("rows unchanged after next click, reading again", "profile", p.Name, "page", state.Page)
				if err := browser.Settle(ctx, s.cfg.ClickSettle); err != nil {
					return nil, err
				}
				continue
			}
			slog.Warn("rows unchanged after next click", "profile", p.Name, "page", state.Page)
			state.Stop = models.StopUnchanged
			break
		}
		if state.Page > 1 && simhash.Similar(fp, lastPrint, overlapBits) {
			slog.Debug("page mostly repeats the previous one", "profile", p.Name, "page", state.Page)
		}
		reread = false
		lastDigest, lastPrint = digest, fp

		var added, malformed, duplicates int
		for _, cells := range rows {
			rec, ok := ext.Extract(cells)
			if !ok {
				malformed++
				continue
			}
			if !seen.Add(rec.Key) {
				duplicates++
				continue
			}
			records = append(records, rec)
			added++
			state.Records = len(records)
			if state.TargetReached() {
				break
			}
		}

		slog.Info("page extracted",
			"profile", p.Name,
			"page", state.Page,
			"rows", len(rows),
			"added", added,
			"malformed", malformed,
			"duplicates", duplicates,
			"records", state.Records,
		)
		emit(ctx, events, Event{Type: EventPage, Profile: p.Name, State: state, Added: added})

		if state.TargetReached() {
			state.Stop = models.StopTarget
			break
		}
		if state.AtPageLimit() {
			state.Stop = models.StopMaxPages
			break
		}

		if err := paginator.Next(ctx, page); err != nil {
			if errors.Is(err, paginate.ErrNoMoreResults) {
				state.Stop = models.StopNoMoreResults
				break
			}
			return nil, err
		}
		state.Advance()
	}

	slog.Info("run finished",
		"profile", p.Name,
		"pages", state.Page,
		"records", state.Records,
		"stop", state.Stop,
		"elapsed", time.Since(started),
	)

	return &Result{
		Profile:    p.Name,
		Records:    records,
		State:      state,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}, nil
}

// dismissConsent clicks a cookie banner button if one is showing. Nothing
// here fails the run.
func (s *Scraper) dismissConsent(ctx context.Context, page browser.Page, selector string) {
	if selector == "" {
		return
	}
	els, err := page.Query(ctx, selector)
	if err != nil {
		slog.Warn("consent lookup failed", "selector", selector, "error", err)
		return
	}
	if len(els) == 0 {
		slog.Debug("no consent banner", "selector", selector)
		return
	}
	if err := els[0].Click(ctx); err != nil {
		if jsErr := els[0].ClickJS(ctx); jsErr != nil {
			slog.Warn("consent dismissal failed", "selector", selector, "error", fmt.Errorf("%w; %w", err, jsErr))
			return
		}
	}
	slog.Info("consent banner dismissed", "selector", selector)
	if err := browser.Settle(ctx, s.cfg.ClickSettle); err != nil {
		slog.Debug("settle after consent interrupted", "error", err)
	}
}
