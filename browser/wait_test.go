package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/models"
)

// stubPage implements Page; only WaitElement matters here.
type stubPage struct {
	wait func(ctx context.Context, selector string) error
}

func (p *stubPage) Navigate(context.Context, string) error { return nil }
func (p *stubPage) WaitElement(ctx context.Context, selector string) error {
	return p.wait(ctx, selector)
}
func (p *stubPage) HTML(context.Context) (string, error)             { return "", nil }
func (p *stubPage) Query(context.Context, string) ([]Element, error) { return nil, nil }
func (p *stubPage) Close() error                                     { return nil }

func blockUntilDone(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWaitReady_Present(t *testing.T) {
	page := &stubPage{wait: func(context.Context, string) error { return nil }}
	if err := WaitReady(context.Background(), page, "#t", time.Second, 0); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
}

func TestWaitReady_Timeout(t *testing.T) {
	page := &stubPage{wait: blockUntilDone}
	err := WaitReady(context.Background(), page, "#t", 20*time.Millisecond, 0)
	if !models.HasCode(err, models.ErrCodePageLoadTimeout) {
		t.Fatalf("WaitReady() error = %v, want %s", err, models.ErrCodePageLoadTimeout)
	}
}

func TestWaitReady_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := &stubPage{wait: blockUntilDone}
	err := WaitReady(ctx, page, "#t", time.Second, 0)
	if !models.HasCode(err, models.ErrCodeNavigation) {
		t.Fatalf("WaitReady() error = %v, want %s", err, models.ErrCodeNavigation)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error does not wrap context.Canceled: %v", err)
	}
}

func TestWaitReady_DriverError(t *testing.T) {
	boom := errors.New("target closed")
	page := &stubPage{wait: func(context.Context, string) error { return boom }}
	err := WaitReady(context.Background(), page, "#t", time.Second, 0)
	if !models.HasCode(err, models.ErrCodeNavigation) || !errors.Is(err, boom) {
		t.Fatalf("WaitReady() error = %v, want navigation error wrapping %v", err, boom)
	}
}

func TestSettle(t *testing.T) {
	start := time.Now()
	if err := Settle(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Settle returned early")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Settle(ctx, time.Hour); err == nil {
		t.Error("Settle on canceled ctx returned nil")
	}
}

func TestIsTrackerHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"doubleclick.net", true},
		{"ad.doubleclick.net", true},
		{"securepubads.g.DOUBLECLICK.net", true},
		{"finance.yahoo.com", false},
		{"notdoubleclick.net", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isTrackerHost(tt.host); got != tt.want {
			t.Errorf("isTrackerHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.BrowserConfig{Backend: "firefox"}, config.ScraperConfig{})
	if !models.HasCode(err, models.ErrCodeInvalidInput) {
		t.Fatalf("Open() error = %v, want %s", err, models.ErrCodeInvalidInput)
	}
}
