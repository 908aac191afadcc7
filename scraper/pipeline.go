package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/llm"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/notify"
	"github.com/use-agent/tablescout/profile"
	"github.com/use-agent/tablescout/report"
	"github.com/use-agent/tablescout/sink"
	"github.com/use-agent/tablescout/stats"
)

// Outcome is a finished run with everything derived from it. The *Error
// fields hold failures of optional steps, which never fail the run.
type Outcome struct {
	Profile    string                 `json:"profile"`
	Records    []models.Record        `json:"records"`
	State      models.PaginationState `json:"state"`
	File       string                 `json:"file"`
	ReportFile string                 `json:"report_file,omitempty"`

	Stats     []stats.ColumnStats `json:"stats,omitempty"`
	Changes   []stats.ChangeStats `json:"changes,omitempty"`
	Highlight *stats.ExtremeStats `json:"highlight,omitempty"`

	Indexed    int    `json:"indexed,omitempty"`
	IndexError string `json:"index_error,omitempty"`

	Summary      *llm.Summary `json:"summary,omitempty"`
	SummaryError string       `json:"summary_error,omitempty"`

	MailError string `json:"mail_error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is the wall time from browser launch to the last output.
func (o *Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// Pipeline runs the scraper and then writes its outputs: the spreadsheet,
// and when configured, the search index, the Markdown report, the AI
// summary and the mail.
type Pipeline struct {
	scraper     *Scraper
	xlsx        *sink.XLSX
	outDir      string
	writeReport bool
	renderer    *report.Renderer

	elastic *sink.Elastic

	llm        *llm.Client
	llmParams  llm.Params
	llmTimeout time.Duration

	mailer *notify.Mailer

	now func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithElastic also indexes records into Elasticsearch.
func WithElastic(e *sink.Elastic) Option {
	return func(p *Pipeline) { p.elastic = e }
}

// WithLLM requests an AI summary of each run.
func WithLLM(c *llm.Client, cfg config.LLMConfig) Option {
	return func(p *Pipeline) {
		p.llm = c
		p.llmParams = llm.ParamsFrom(cfg)
		p.llmTimeout = cfg.Timeout
	}
}

// WithMailer emails each spreadsheet.
func WithMailer(m *notify.Mailer) Option {
	return func(p *Pipeline) { p.mailer = m }
}

// WithClock overrides the time source used for filenames.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline builds a pipeline writing into cfg.Output.Dir.
func NewPipeline(cfg *config.Config, sc *Scraper, opts ...Option) *Pipeline {
	p := &Pipeline{
		scraper:     sc,
		xlsx:        sink.NewXLSX(cfg.Output.Dir),
		outDir:      cfg.Output.Dir,
		writeReport: cfg.Output.WriteReport,
		renderer:    report.NewRenderer(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs prof end to end. Progress goes to events, which may be nil;
// the last event is always EventDone or EventFailed. A run with no
// records returns ErrCodeNoRecords and writes no file.
func (pl *Pipeline) Execute(ctx context.Context, prof profile.Profile, events chan<- Event) (*Outcome, error) {
	out, err := pl.execute(ctx, prof, events)
	if err != nil {
		emitFinal(events, Event{Type: EventFailed, Profile: prof.Name, Err: err})
		return nil, err
	}
	emitFinal(events, Event{Type: EventDone, Profile: prof.Name, State: out.State, Outcome: out})
	return out, nil
}

func (pl *Pipeline) execute(ctx context.Context, prof profile.Profile, events chan<- Event) (*Outcome, error) {
	stage := func(name string) {
		emit(ctx, events, Event{Type: EventStage, Profile: prof.Name, Stage: name})
	}

	stage(StageScraping)
	res, err := pl.scraper.Run(ctx, prof, events)
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		slog.Warn("run collected no records, nothing written", "profile", prof.Name, "stop", res.State.Stop)
		return nil, models.NewScrapeError(
			models.ErrCodeNoRecords,
			fmt.Sprintf("no records collected (stopped: %s)", res.State.Stop),
			nil,
		)
	}

	now := pl.now()
	out := &Outcome{
		Profile:   prof.Name,
		Records:   res.Records,
		State:     res.State,
		StartedAt: res.StartedAt,
	}

	stage(StageWriting)
	out.File, err = pl.xlsx.Write(prof, res.Records, now)
	if err != nil {
		return nil, err
	}

	out.Stats = stats.Columns(prof, res.Records)
	for _, col := range prof.Columns {
		if !col.Kind.Numeric() {
			continue
		}
		if c, ok := stats.Change(prof, res.Records, col.Name); ok {
			out.Changes = append(out.Changes, c)
		}
	}
	if prof.HighlightColumn != "" {
		if hl, ok := stats.Extremes(prof, res.Records, prof.HighlightColumn, prof.LabelColumn); ok {
			out.Highlight = &hl
		}
	}

	if pl.elastic != nil {
		stage(StageIndexing)
		out.Indexed, err = pl.elastic.Index(ctx, prof, res.Records, now)
		if err != nil {
			slog.Warn("indexing failed", "profile", prof.Name, "error", err)
			out.IndexError = err.Error()
		}
	}

	if pl.writeReport || pl.llm != nil {
		stage(StageReporting)
		md, err := pl.renderer.Render(report.Data{
			Profile:   prof,
			Records:   res.Records,
			State:     res.State,
			Stats:     out.Stats,
			Changes:   out.Changes,
			Highlight: out.Highlight,
			Generated: now,
		})
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInternal, "rendering report failed", err)
		}
		if pl.writeReport {
			if out.ReportFile, err = report.Write(pl.outDir, prof.FilePrefix, now, md); err != nil {
				return nil, err
			}
		}
		if pl.llm != nil {
			stage(StageSummarizing)
			out.Summary, out.SummaryError = pl.summarize(ctx, prof.Name, md)
		}
	}

	if pl.mailer != nil {
		stage(StageMailing)
		if err := pl.mailer.Send(mailMessage(prof, out)); err != nil {
			slog.Warn("mail failed", "profile", prof.Name, "error", err)
			out.MailError = err.Error()
		}
	}

	out.FinishedAt = time.Now()
	return out, nil
}

// summarize returns the AI summary, or the error as a string for display
// next to the run.
func (pl *Pipeline) summarize(ctx context.Context, profileName, markdown string) (*llm.Summary, string) {
	if pl.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pl.llmTimeout)
		defer cancel()
	}
	sum, err := pl.llm.Summarize(ctx, markdown, pl.llmParams)
	if err != nil {
		slog.Warn("summary failed", "profile", profileName, "error", err)
		return nil, models.AsScrapeError(err).Error()
	}
	return sum, ""
}

func mailMessage(prof profile.Profile, out *Outcome) notify.Message {
	body := fmt.Sprintf("%s: %d records from %d page(s), stopped: %s.\n",
		prof.Name, len(out.Records), out.State.Page, out.State.Stop)
	if out.Summary != nil {
		body += "\n" + out.Summary.Text + "\n"
	}
	attachments := []string{out.File}
	if out.ReportFile != "" {
		attachments = append(attachments, out.ReportFile)
	}
	return notify.Message{
		Subject:     fmt.Sprintf("[tablescout] %s: %d records", prof.Name, len(out.Records)),
		Body:        body,
		Attachments: attachments,
	}
}
