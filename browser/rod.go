package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/models"
	"github.com/ysmood/gson"
)

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	bcfg     config.BrowserConfig
	scfg     config.ScraperConfig
}

// openRod launches Chromium through rod's launcher and connects to it.
func openRod(ctx context.Context, bcfg config.BrowserConfig, scfg config.ScraperConfig) (*rodSession, error) {
	l := launcher.New().
		Context(ctx).
		Headless(bcfg.Headless).
		NoSandbox(bcfg.NoSandbox)

	if bcfg.BrowserBin != "" {
		l = l.Bin(bcfg.BrowserBin)
	}
	if bcfg.Proxy != "" {
		l = l.Proxy(bcfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", bcfg.WindowWidth, bcfg.WindowHeight))
	if bcfg.UserAgent != "" {
		l.Set(flags.Flag("user-agent"), bcfg.UserAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "backend", config.BackendRod, "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to connect to browser",
			err,
		)
	}

	return &rodSession{launcher: l, browser: browser, bcfg: bcfg, scfg: scfg}, nil
}

// NewPage opens a tab with the configured viewport, user agent, stealth
// script and resource blocking installed. All of it must be in place
// before the first navigation.
func (s *rodSession) NewPage(ctx context.Context) (Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to open page",
			err,
		)
	}

	if s.bcfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.bcfg.WindowWidth,
		Height:            s.bcfg.WindowHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = page.Close()
		return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to set viewport", err)
	}

	if s.bcfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      s.bcfg.UserAgent,
			AcceptLanguage: "en-US,en;q=0.9,ko;q=0.8",
		}); err != nil {
			_ = page.Close()
			return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to set user agent", err)
		}
	}

	return &rodPage{
		page:   page,
		router: setupHijack(page, s.scfg.BlockedResourceTypes),
	}, nil
}

// Close closes the browser and kills the process. It is safe to call on
// a session whose browser already died.
func (s *rodSession) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	slog.Info("browser closed", "backend", config.BackendRod)
	return err
}

type rodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return categorizeError(err, "navigation to target URL failed")
	}
	if err := pg.WaitLoad(); err != nil {
		slog.Debug("load event did not fire, continuing with current DOM", "url", url, "error", err)
	}
	return nil
}

func (p *rodPage) WaitElement(ctx context.Context, selector string) error {
	_, err := p.page.Context(ctx).Element(selector)
	return err
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

func (p *rodPage) Query(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

func (p *rodPage) Close() error {
	if p.router != nil {
		_ = p.router.Stop()
	}
	return p.page.Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Disabled(ctx context.Context) (bool, error) {
	el := e.el.Context(ctx)
	prop, err := el.Property("disabled")
	if err != nil {
		return false, err
	}
	if disabledProperty(prop) {
		return true, nil
	}
	aria, err := el.Attribute("aria-disabled")
	if err != nil {
		return false, err
	}
	return aria != nil && *aria == "true", nil
}

// disabledProperty reads the DOM "disabled" property. Anchors and divs
// have none, which decodes as nil.
func disabledProperty(prop gson.JSON) bool {
	return !prop.Nil() && prop.Bool()
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ClickJS(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.click()`)
	return err
}
