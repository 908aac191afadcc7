package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/tablescout/browser"
	"github.com/use-agent/tablescout/browser/browsertest"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
	"github.com/xuri/excelize/v2"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Scraper: config.ScraperConfig{
			NavigationTimeout: time.Second,
			ReadyTimeout:      time.Second,
		},
		Output: config.OutputConfig{Dir: dir},
	}
}

func testProfile() profile.Profile {
	p := profile.Profile{
		Name:         "quotes",
		URL:          "https://example.test/quotes",
		RowSelector:  "table tr.row",
		CellSelector: "td",
		Columns: []profile.Column{
			{Name: "symbol", Header: "Symbol", Cell: 0},
			{Name: "price", Header: "Price", Cell: 1, Kind: profile.KindNumber},
		},
		KeyColumns: []string{"symbol"},
		Next: []profile.LocatorSpec{
			{Strategy: profile.StrategyAttribute, Selector: "#next"},
		},
		TargetCount: 100,
		MaxPages:    10,
		SheetName:   "Quotes",
		FilePrefix:  "quotes",
	}
	p.Defaults()
	return p
}

// doc renders a table page; each row is "symbol,price" or a bare symbol
// for a malformed single-cell row.
func doc(rows ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	for _, r := range rows {
		b.WriteString(`<tr class="row">`)
		for _, cell := range strings.Split(r, ",") {
			fmt.Fprintf(&b, "<td>%s</td>", cell)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func newSession(docs ...string) *browsertest.Session {
	return &browsertest.Session{Page: &browsertest.Page{Docs: docs, NextSelector: "#next"}}
}

func keys(recs []models.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Key
	}
	return out
}

func drain(events chan Event) []Event {
	close(events)
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRun_DedupAcrossPages(t *testing.T) {
	sess := newSession(
		doc("AAA,1.5", "BBB,2"),
		doc("BBB,99", "broken", "CCC,3"),
	)
	sc := New(testConfig(t.TempDir()), browsertest.Opener(sess, nil))
	events := make(chan Event, 16)

	res, err := sc.Run(context.Background(), testProfile(), events)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if diff := cmp.Diff([]string{"AAA", "BBB", "CCC"}, keys(res.Records)); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	// first-seen BBB keeps its page-1 price
	if v, _ := res.Records[1].Values[1].Float(); v != 2 {
		t.Errorf("BBB price = %v, want 2", v)
	}
	if res.State.Page != 2 || res.State.Stop != models.StopNoMoreResults {
		t.Errorf("state = %+v", res.State)
	}

	var pages []int
	for _, ev := range drain(events) {
		if ev.Type == EventPage {
			pages = append(pages, ev.Added)
		}
	}
	if diff := cmp.Diff([]int{2, 1}, pages); diff != "" {
		t.Errorf("added per page mismatch (-want +got):\n%s", diff)
	}

	if !sess.Closed || !sess.Page.Closed {
		t.Error("browser not released")
	}
	if len(sess.Page.Visited) != 1 || sess.Page.Visited[0] != "https://example.test/quotes" {
		t.Errorf("visited = %v", sess.Page.Visited)
	}
}

func TestRun_StopsAtMaxPages(t *testing.T) {
	var docs []string
	for i := range 20 {
		docs = append(docs, doc(fmt.Sprintf("S%02d,%d", i, i)))
	}
	sess := newSession(docs...)
	p := testProfile()
	p.MaxPages = 3

	res, err := New(testConfig(t.TempDir()), browsertest.Opener(sess, nil)).Run(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State.Page != 3 || res.State.Stop != models.StopMaxPages {
		t.Errorf("state = %+v, want page 3 stopped at max_pages", res.State)
	}
	if len(res.Records) != 3 {
		t.Errorf("records = %d, want 3", len(res.Records))
	}
}

func TestRun_TruncatesAtTarget(t *testing.T) {
	sess := newSession(doc("A,1", "B,2"), doc("C,3", "D,4"), doc("E,5"))
	p := testProfile()
	p.TargetCount = 3

	res, err := New(testConfig(t.TempDir()), browsertest.Opener(sess, nil)).Run(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, keys(res.Records)); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if res.State.Stop != models.StopTarget || res.State.Page != 2 {
		t.Errorf("state = %+v", res.State)
	}
}

func TestRun_NoRows(t *testing.T) {
	sess := newSession(doc())
	res, err := New(testConfig(t.TempDir()), browsertest.Opener(sess, nil)).Run(context.Background(), testProfile(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Records) != 0 || res.State.Stop != models.StopNoRows {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_ConsentDismissed(t *testing.T) {
	consent := &browsertest.Element{}
	sess := newSession(doc("A,1"))
	sess.Page.Elements = map[string][]browser.Element{"button.accept": {consent}}
	p := testProfile()
	p.ConsentSelector = "button.accept"

	if _, err := New(testConfig(t.TempDir()), browsertest.Opener(sess, nil)).Run(context.Background(), p, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if consent.Clicks != 1 {
		t.Errorf("consent clicks = %d, want 1", consent.Clicks)
	}
}

func TestRun_Failures(t *testing.T) {
	launchErr := models.NewScrapeError(models.ErrCodeBrowserLaunch, "no chrome", nil)
	navErr := models.NewScrapeError(models.ErrCodeNavigation, "dns", nil)
	stuck := &browsertest.Element{ClickErr: errors.New("covered"), ClickJSErr: errors.New("detached")}

	tests := []struct {
		name      string
		sess      *browsertest.Session
		openErr   error
		wantCode  string
		wantClose bool
	}{
		{
			name:     "launch",
			openErr:  launchErr,
			wantCode: models.ErrCodeBrowserLaunch,
		},
		{
			name:      "navigation",
			sess:      &browsertest.Session{Page: &browsertest.Page{Docs: []string{doc("A,1")}, NavigateErr: navErr}},
			wantCode:  models.ErrCodeNavigation,
			wantClose: true,
		},
		{
			name: "ready timeout",
			sess: &browsertest.Session{Page: &browsertest.Page{
				Docs:    []string{doc("A,1")},
				WaitErr: context.DeadlineExceeded,
			}},
			wantCode:  models.ErrCodePageLoadTimeout,
			wantClose: true,
		},
		{
			name: "pagination",
			sess: &browsertest.Session{Page: &browsertest.Page{
				Docs:     []string{doc("A,1"), doc("B,2")},
				Elements: map[string][]browser.Element{"#next": {stuck}},
			}},
			wantCode:  models.ErrCodePagination,
			wantClose: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := New(testConfig(t.TempDir()), browsertest.Opener(tt.sess, tt.openErr))
			res, err := sc.Run(context.Background(), testProfile(), nil)
			if res != nil {
				t.Errorf("Run() result = %+v, want nil", res)
			}
			if !models.HasCode(err, tt.wantCode) {
				t.Fatalf("Run() error = %v, want %s", err, tt.wantCode)
			}
			if tt.wantClose && !tt.sess.Closed {
				t.Error("browser not released on failure")
			}
		})
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	sess := newSession(
		doc("AAA,1.5", "BBB,2"),
		doc("BBB,99", "CCC,3"),
	)
	cfg := testConfig(dir)
	now := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	pl := NewPipeline(cfg, New(cfg, browsertest.Opener(sess, nil)), WithClock(func() time.Time { return now }))

	events := make(chan Event, 32)
	out, err := pl.Execute(context.Background(), testProfile(), events)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	evs := drain(events)
	if last := evs[len(evs)-1]; last.Type != EventDone || last.Outcome != out {
		t.Errorf("last event = %+v, want done with outcome", last)
	}

	f, err := excelize.OpenFile(out.File)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Quotes")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	want := [][]string{
		{"Symbol", "Price"},
		{"AAA", "1.5"},
		{"BBB", "2"},
		{"CCC", "3"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("sheet mismatch (-want +got):\n%s", diff)
	}

	if len(out.Stats) != 1 || out.Stats[0].Count != 3 {
		t.Errorf("stats = %+v", out.Stats)
	}
	if out.ReportFile != "" || out.Summary != nil {
		t.Errorf("optional outputs produced without being configured: %+v", out)
	}
}

func TestPipeline_NoRecordsWritesNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	pl := NewPipeline(cfg, New(cfg, browsertest.Opener(newSession(doc()), nil)))

	events := make(chan Event, 8)
	_, err := pl.Execute(context.Background(), testProfile(), events)
	if !models.HasCode(err, models.ErrCodeNoRecords) {
		t.Fatalf("Execute() error = %v, want %s", err, models.ErrCodeNoRecords)
	}
	evs := drain(events)
	if last := evs[len(evs)-1]; last.Type != EventFailed || last.Err == nil {
		t.Errorf("last event = %+v, want failed", last)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("output dir has %d entries, want none", len(entries))
	}
}

func TestPipeline_MalformedOnlyWritesNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	pl := NewPipeline(cfg, New(cfg, browsertest.Opener(newSession(doc("x", "y")), nil)))

	if _, err := pl.Execute(context.Background(), testProfile(), nil); !models.HasCode(err, models.ErrCodeNoRecords) {
		t.Fatalf("Execute() error = %v, want %s", err, models.ErrCodeNoRecords)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("output dir has %d entries, want none", len(entries))
	}
}

func TestRun_StopsWhenPageUnchanged(t *testing.T) {
	// the click "succeeds" but the table does not move
	sess := newSession(doc("A,1", "B,2"), doc("A,1", "B,2"), doc("C,3"))

	res, err := New(testConfig(t.TempDir()), browsertest.Opener(sess, nil)).Run(context.Background(), testProfile(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State.Stop != models.StopUnchanged || res.State.Page != 2 {
		t.Errorf("state = %+v, want page 2 stopped at %s", res.State, models.StopUnchanged)
	}
	if diff := cmp.Diff([]string{"A", "B"}, keys(res.Records)); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	// page 1, then page 2 read twice
	if got := sess.Page.Reads; got != 3 {
		t.Errorf("HTML reads = %d, want 3", got)
	}
}

func TestRun_RereadsSlowPage(t *testing.T) {
	// the first read after each click still shows the old rows
	sess := newSession(doc("A,1", "B,2"), doc("C,3", "D,4"), doc("E,5"))
	sess.Page.StaleReads = 1

	res, err := New(testConfig(t.TempDir()), browsertest.Opener(sess, nil)).Run(context.Background(), testProfile(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State.Stop != models.StopNoMoreResults || res.State.Page != 3 {
		t.Errorf("state = %+v, want page 3 stopped at %s", res.State, models.StopNoMoreResults)
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "D", "E"}, keys(res.Records)); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}
