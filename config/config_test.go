package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Browser.Backend != BackendRod {
		t.Errorf("Backend = %q, want %q", cfg.Browser.Backend, BackendRod)
	}
	if !cfg.Browser.Headless || !cfg.Browser.NoSandbox {
		t.Errorf("browser should default to headless without sandbox, got %+v", cfg.Browser)
	}
	if cfg.Browser.WindowWidth != 1920 || cfg.Browser.WindowHeight != 1080 {
		t.Errorf("window = %dx%d, want 1920x1080", cfg.Browser.WindowWidth, cfg.Browser.WindowHeight)
	}
	if cfg.Scraper.ReadyTimeout != 20*time.Second {
		t.Errorf("ReadyTimeout = %v, want 20s", cfg.Scraper.ReadyTimeout)
	}
	if cfg.Scraper.SettleDelay != 3*time.Second {
		t.Errorf("SettleDelay = %v, want 3s", cfg.Scraper.SettleDelay)
	}
	if cfg.LLM.Enabled() {
		t.Error("LLM should be disabled without an API key")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TABLESCOUT_BACKEND", "chromedp")
	t.Setenv("TABLESCOUT_READY_TIMEOUT", "15s")
	t.Setenv("TABLESCOUT_HEADLESS", "false")
	t.Setenv("TABLESCOUT_ES_ADDRESSES", "http://a:9200, http://b:9200 ,")
	t.Setenv("TABLESCOUT_PORT", "not-a-number")

	cfg := Load()

	if cfg.Browser.Backend != BackendChromedp {
		t.Errorf("Backend = %q, want chromedp", cfg.Browser.Backend)
	}
	if cfg.Scraper.ReadyTimeout != 15*time.Second {
		t.Errorf("ReadyTimeout = %v, want 15s", cfg.Scraper.ReadyTimeout)
	}
	if cfg.Browser.Headless {
		t.Error("Headless should be false")
	}
	if got := cfg.Elastic.Addresses; len(got) != 2 || got[0] != "http://a:9200" || got[1] != "http://b:9200" {
		t.Errorf("Addresses = %q", got)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("invalid port should fall back to 8080, got %d", cfg.Server.Port)
	}
}
