package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/tablescout/api/handler"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/jobs"
	"github.com/use-agent/tablescout/metrics"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
	"github.com/use-agent/tablescout/scraper"
)

const testKey = "k-123"

// stubRunner finishes every run with one gold record, or with err.
type stubRunner struct {
	gate chan struct{}
	err  error
}

func (s *stubRunner) Execute(ctx context.Context, prof profile.Profile, events chan<- scraper.Event) (*scraper.Outcome, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
		}
	}
	if s.err != nil {
		events <- scraper.Event{Type: scraper.EventFailed, Profile: prof.Name, Err: s.err}
		return nil, s.err
	}
	state := models.PaginationState{Page: 1, Records: 1, Stop: models.StopNoMoreResults}
	out := &scraper.Outcome{
		Profile: prof.Name,
		Records: []models.Record{{
			Key: "2025.01.02|596000",
			Values: []models.Value{
				models.Text("2025.01.02"), models.Number(596000), models.Number(497000),
				models.Absent(), models.Number(271700),
			},
		}},
		State: state,
		File:  "/out/금시세_20250102_150405.xlsx",
	}
	events <- scraper.Event{Type: scraper.EventDone, Profile: prof.Name, State: state, Outcome: out}
	return out, nil
}

func newTestRouter(t *testing.T, runner jobs.Runner, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{testKey}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
	if mutate != nil {
		mutate(cfg)
	}
	reg, err := profile.NewRegistry(profile.Gold(), profile.Gainers())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	mgr := jobs.NewManager(runner)
	t.Cleanup(mgr.Close)
	return NewRouter(cfg, reg, mgr, metrics.New(), time.Now())
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth_NoAuth(t *testing.T) {
	h := newTestRouter(t, &stubRunner{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[models.HealthResponse](t, rec)
	if got.Status != "healthy" || got.Profiles != 2 || got.Version != handler.Version {
		t.Errorf("health = %+v", got)
	}
}

func TestAuth(t *testing.T) {
	h := newTestRouter(t, &stubRunner{}, nil)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"api key", "X-API-Key", testKey, http.StatusOK},
		{"bearer", "Authorization", "Bearer " + testKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	h := newTestRouter(t, &stubRunner{}, nil)

	rec := do(h, http.MethodGet, "/api/v1/profiles", "")
	list := decode[struct {
		Profiles []models.ProfileSummary `json:"profiles"`
	}](t, rec)
	var names []string
	for _, p := range list.Profiles {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"gainers", "gold"}, names); diff != "" {
		t.Errorf("profile names mismatch (-want +got):\n%s", diff)
	}

	rec = do(h, http.MethodGet, "/api/v1/profiles/gold", "")
	if got := decode[profile.Profile](t, rec); got.URL != profile.Gold().URL {
		t.Errorf("gold url = %q", got.URL)
	}

	rec = do(h, http.MethodGet, "/api/v1/profiles/silver", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown profile status = %d, want 404", rec.Code)
	}
}

func TestPostRun_Wait(t *testing.T) {
	h := newTestRouter(t, &stubRunner{}, nil)

	rec := do(h, http.MethodPost, "/api/v1/runs", `{"profile":"gold","wait":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[handler.RunResponse](t, rec)
	if got.Status != jobs.StatusCompleted || got.State.Stop != models.StopNoMoreResults {
		t.Errorf("run = %+v", got)
	}
	want := []map[string]any{{
		"date":      "2025.01.02",
		"buy_pure":  596000.0,
		"sell_pure": 497000.0,
		"sell_18k":  nil,
		"sell_14k":  271700.0,
	}}
	if diff := cmp.Diff(want, got.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	rec = do(h, http.MethodGet, "/api/v1/runs/"+got.ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET run status = %d", rec.Code)
	}
}

func TestPostRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		runner   *stubRunner
		body     string
		wantCode int
		wantErr  string
	}{
		{"bad json", &stubRunner{}, `{`, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"missing profile", &stubRunner{}, `{}`, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"unknown profile", &stubRunner{}, `{"profile":"silver"}`, http.StatusNotFound, models.ErrCodeProfileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, tt.runner, nil)
			rec := do(h, http.MethodPost, "/api/v1/runs", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := decode[models.ErrorResponse](t, rec); got.Error == nil || got.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want %s", got.Error, tt.wantErr)
			}
		})
	}
}

func TestPostRun_FailedRunReportsError(t *testing.T) {
	runErr := models.NewScrapeError(models.ErrCodeNoRecords, "no records collected", nil)
	h := newTestRouter(t, &stubRunner{err: runErr}, nil)

	rec := do(h, http.MethodPost, "/api/v1/runs", `{"profile":"gold","wait":true}`)
	got := decode[handler.RunResponse](t, rec)
	if got.Status != jobs.StatusFailed || got.Error == nil || got.Error.Code != models.ErrCodeNoRecords {
		t.Errorf("run = %+v", got)
	}
	if len(got.Records) != 0 {
		t.Errorf("failed run returned %d records", len(got.Records))
	}
}

func TestPostRun_Conflict(t *testing.T) {
	r := &stubRunner{gate: make(chan struct{})}
	h := newTestRouter(t, r, nil)
	defer close(r.gate)

	rec := do(h, http.MethodPost, "/api/v1/runs", `{"profile":"gold"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first run status = %d", rec.Code)
	}
	rec = do(h, http.MethodPost, "/api/v1/runs", `{"profile":"gold"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("second run status = %d, want 409", rec.Code)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	h := newTestRouter(t, &stubRunner{}, nil)
	if rec := do(h, http.MethodGet, "/api/v1/runs/run-missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStreamRun(t *testing.T) {
	h := newTestRouter(t, &stubRunner{}, nil)

	rec := do(h, http.MethodPost, "/api/v1/runs", `{"profile":"gold","wait":true}`)
	id := decode[handler.RunResponse](t, rec).ID

	rec = do(h, http.MethodGet, "/api/v1/runs/"+id+"/events", "")
	body := rec.Body.String()
	if !strings.Contains(body, "event:run") || !strings.Contains(body, `"status":"completed"`) {
		t.Errorf("stream body = %q", body)
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestRouter(t, &stubRunner{}, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	})

	if rec := do(h, http.MethodGet, "/api/v1/profiles", ""); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/profiles", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, &stubRunner{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("go_goroutines")) {
		t.Errorf("metrics status = %d", rec.Code)
	}
}
