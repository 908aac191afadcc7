package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is built once at process
// start and handed to each component that needs it.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Output    OutputConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	LLM       LLMConfig
	Webhook   WebhookConfig
	Mail      MailConfig
	Elastic   ElasticConfig
	Jobs      JobsConfig
	Profiles  ProfilesConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// Browser backends.
const (
	BackendRod      = "rod"
	BackendChromedp = "chromedp"
)

// DefaultUserAgent is sent by every page unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BrowserConfig controls the browser session.
type BrowserConfig struct {
	// Backend selects the automation driver: "rod" or "chromedp".
	Backend string // default: "rod"

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all requests.
	Proxy string

	UserAgent    string // default: DefaultUserAgent
	WindowWidth  int    // default: 1920
	WindowHeight int    // default: 1080

	// Stealth masks navigator.webdriver and friends (rod backend only).
	Stealth bool // default: true
}

// ScraperConfig controls the pagination loop timing.
type ScraperConfig struct {
	// NavigationTimeout bounds the initial page load.
	NavigationTimeout time.Duration // default: 30s

	// ReadyTimeout bounds the wait for the table element to appear.
	ReadyTimeout time.Duration // default: 20s

	// SettleDelay is slept after the table appears and before each read.
	SettleDelay time.Duration // default: 3s

	// ClickSettle is slept after each next-page click.
	ClickSettle time.Duration // default: 2s

	// BlockedResourceTypes lists resource types to block (rod backend).
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// OutputConfig controls where result files go.
type OutputConfig struct {
	// Dir is the directory for spreadsheets and reports.
	Dir string // default: "."

	// WriteReport also writes a Markdown report next to the spreadsheet.
	WriteReport bool // default: false
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the run outcome cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached outcomes.
	MaxEntries int // default: 100
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// LLMConfig controls the optional AI summary. Summaries are skipped when
// APIKey is empty.
type LLMConfig struct {
	BaseURL string        // default: "https://api.openai.com/v1"
	APIKey  string
	Model   string        // default: "gpt-4o-mini"
	Timeout time.Duration // default: 60s

	// Language the summary is written in.
	Language string // default: "English"
}

// Enabled reports whether an API key is configured.
func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

// WebhookConfig controls run completion notifications.
type WebhookConfig struct {
	URL    string
	Secret string
}

// MailConfig controls emailing finished spreadsheets. Mail is disabled
// when Server or To is empty.
type MailConfig struct {
	Server   string
	Port     int // default: 587
	Address  string
	Password string
	To       []string
}

// Enabled reports whether mail delivery is configured.
func (c MailConfig) Enabled() bool { return c.Server != "" && len(c.To) > 0 }

// ElasticConfig controls the optional Elasticsearch record sink. The sink
// is disabled when Addresses is empty.
type ElasticConfig struct {
	Addresses   []string
	Username    string
	Password    string
	IndexPrefix string // default: "tablescout"
}

// JobsConfig controls the async run store.
type JobsConfig struct {
	// TTL is how long finished jobs stay queryable.
	TTL time.Duration // default: 1h
}

// ProfilesConfig points at user-defined site profiles.
type ProfilesConfig struct {
	// File is a YAML file merged over the built-in profiles.
	File string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("TABLESCOUT_HOST", "0.0.0.0"),
			Port: envIntOr("TABLESCOUT_PORT", 8080),
			Mode: envOr("TABLESCOUT_MODE", "release"),
		},
		Browser: BrowserConfig{
			Backend:      envOr("TABLESCOUT_BACKEND", BackendRod),
			Headless:     envBoolOr("TABLESCOUT_HEADLESS", true),
			NoSandbox:    envBoolOr("TABLESCOUT_NO_SANDBOX", true),
			BrowserBin:   os.Getenv("TABLESCOUT_BROWSER_BIN"),
			Proxy:        os.Getenv("TABLESCOUT_PROXY"),
			UserAgent:    envOr("TABLESCOUT_USER_AGENT", DefaultUserAgent),
			WindowWidth:  envIntOr("TABLESCOUT_WINDOW_WIDTH", 1920),
			WindowHeight: envIntOr("TABLESCOUT_WINDOW_HEIGHT", 1080),
			Stealth:      envBoolOr("TABLESCOUT_STEALTH", true),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("TABLESCOUT_NAV_TIMEOUT", 30*time.Second),
			ReadyTimeout:      envDurationOr("TABLESCOUT_READY_TIMEOUT", 20*time.Second),
			SettleDelay:       envDurationOr("TABLESCOUT_SETTLE_DELAY", 3*time.Second),
			ClickSettle:       envDurationOr("TABLESCOUT_CLICK_SETTLE", 2*time.Second),
			BlockedResourceTypes: envSliceOr("TABLESCOUT_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Output: OutputConfig{
			Dir:         envOr("TABLESCOUT_OUTPUT_DIR", "."),
			WriteReport: envBoolOr("TABLESCOUT_WRITE_REPORT", false),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("TABLESCOUT_AUTH_ENABLED", true),
			APIKeys: envSliceOr("TABLESCOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("TABLESCOUT_RATE_RPS", 2.0),
			Burst:             envIntOr("TABLESCOUT_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("TABLESCOUT_CACHE_MAX_ENTRIES", 100),
		},
		Log: LogConfig{
			Level:  envOr("TABLESCOUT_LOG_LEVEL", "info"),
			Format: envOr("TABLESCOUT_LOG_FORMAT", "json"),
		},
		LLM: LLMConfig{
			BaseURL: envOr("TABLESCOUT_LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  os.Getenv("TABLESCOUT_LLM_API_KEY"),
			Model:   envOr("TABLESCOUT_LLM_MODEL", "gpt-4o-mini"),
			Timeout: envDurationOr("TABLESCOUT_LLM_TIMEOUT", 60*time.Second),

			Language: envOr("TABLESCOUT_LLM_LANGUAGE", "English"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("TABLESCOUT_WEBHOOK_URL"),
			Secret: os.Getenv("TABLESCOUT_WEBHOOK_SECRET"),
		},
		Mail: MailConfig{
			Server:   os.Getenv("TABLESCOUT_SMTP_SERVER"),
			Port:     envIntOr("TABLESCOUT_SMTP_PORT", 587),
			Address:  os.Getenv("TABLESCOUT_SMTP_ADDRESS"),
			Password: os.Getenv("TABLESCOUT_SMTP_PASSWORD"),
			To:       envSliceOr("TABLESCOUT_MAIL_TO", nil),
		},
		Elastic: ElasticConfig{
			Addresses:   envSliceOr("TABLESCOUT_ES_ADDRESSES", nil),
			Username:    os.Getenv("TABLESCOUT_ES_USERNAME"),
			Password:    os.Getenv("TABLESCOUT_ES_PASSWORD"),
			IndexPrefix: envOr("TABLESCOUT_ES_INDEX_PREFIX", "tablescout"),
		},
		Jobs: JobsConfig{
			TTL: envDurationOr("TABLESCOUT_JOB_TTL", time.Hour),
		},
		Profiles: ProfilesConfig{
			File: os.Getenv("TABLESCOUT_PROFILES_FILE"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
