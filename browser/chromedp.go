package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/models"
)

type chromedpSession struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// openChromedp starts Chrome through a chromedp exec allocator. The
// browser process lives until Close cancels the allocator.
func openChromedp(_ context.Context, bcfg config.BrowserConfig) (*chromedpSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", bcfg.Headless),
		chromedp.Flag("no-sandbox", bcfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.DisableGPU,
		chromedp.WindowSize(bcfg.WindowWidth, bcfg.WindowHeight),
	)
	if bcfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(bcfg.UserAgent))
	}
	if bcfg.BrowserBin != "" {
		opts = append(opts, chromedp.ExecPath(bcfg.BrowserBin))
	}
	if bcfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(bcfg.Proxy))
	}

	// The allocator must outlive any single request context.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Running with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "backend", config.BackendChromedp)

	return &chromedpSession{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

func (s *chromedpSession) NewPage(_ context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to open page",
			err,
		)
	}
	return &chromedpPage{tabCtx: tabCtx, cancel: cancel}, nil
}

func (s *chromedpSession) Close() error {
	s.cancelBrowser()
	s.cancelAlloc()
	slog.Info("browser closed", "backend", config.BackendChromedp)
	return nil
}

type chromedpPage struct {
	tabCtx context.Context
	cancel context.CancelFunc
}

// run executes actions in the tab, bounded by ctx's deadline and
// cancellation. Cancelling the derived context aborts the actions
// without closing the tab.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromedpPage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return categorizeError(err, "navigation to target URL failed")
	}
	return nil
}

func (p *chromedpPage) WaitElement(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *chromedpPage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

func (p *chromedpPage) Query(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = &chromedpElement{page: p, node: n}
	}
	return out, nil
}

func (p *chromedpPage) Close() error {
	p.cancel()
	return nil
}

type chromedpElement struct {
	page *chromedpPage
	node *cdp.Node
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.page.run(ctx, chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID))
	return text, err
}

// Attribute reads the node's attributes as captured by the query.
func (e *chromedpElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.node.Attribute(name)
	return v, ok, nil
}

func (e *chromedpElement) Disabled(ctx context.Context) (bool, error) {
	if _, ok, _ := e.Attribute(ctx, "disabled"); ok {
		return true, nil
	}
	aria, _, _ := e.Attribute(ctx, "aria-disabled")
	return aria == "true", nil
}

func (e *chromedpElement) Click(ctx context.Context) error {
	return e.page.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *chromedpElement) ClickJS(ctx context.Context) error {
	return e.page.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		_, exc, err := runtime.CallFunctionOn(`function() { this.click(); }`).
			WithObjectID(obj.ObjectID).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script click: %s", exc.Text)
		}
		return nil
	}))
}
