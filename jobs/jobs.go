// Package jobs runs scrapes in the background for the HTTP API.
//
// Each run has one worker goroutine and one consumer goroutine. The worker
// only sends scraper events; the consumer is the only writer of the job's
// state, which it updates under the manager lock and fans out to
// subscribers.
package jobs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/tablescout/cache"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/metrics"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
	"github.com/use-agent/tablescout/scraper"
	"github.com/use-agent/tablescout/webhook"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is a snapshot of one run.
type Job struct {
	ID         string                 `json:"id"`
	Profile    string                 `json:"profile"`
	Status     Status                 `json:"status"`
	Stage      string                 `json:"stage,omitempty"`
	State      models.PaginationState `json:"state"`
	Records    int                    `json:"records"`
	Cached     bool                   `json:"cached,omitempty"`
	Outcome    *scraper.Outcome       `json:"outcome,omitempty"`
	Error      *models.ErrorDetail    `json:"error,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	FinishedAt time.Time              `json:"finished_at,omitzero"`
}

// Finished reports whether the job reached a terminal status.
func (j Job) Finished() bool { return j.Status != StatusRunning }

// Runner executes one profile. *scraper.Pipeline implements it.
type Runner interface {
	Execute(ctx context.Context, prof profile.Profile, events chan<- scraper.Event) (*scraper.Outcome, error)
}

// subscriberBuffer is the per-subscriber event backlog. Slow subscribers
// lose page events rather than stall the run.
const subscriberBuffer = 64

type job struct {
	Job
	cacheKey string
	done     chan struct{}
	subs     map[chan scraper.Event]struct{}
}

// Manager owns all jobs. It allows one running job per profile.
type Manager struct {
	runner  Runner
	cache   *cache.Cache[*scraper.Outcome]
	metrics *metrics.Metrics
	hook    config.WebhookConfig
	ttl     time.Duration

	mu     sync.Mutex
	jobs   map[string]*job
	active map[string]string // profile name -> running job ID

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithCache serves fresh outcomes from c when a start asks for it.
func WithCache(c *cache.Cache[*scraper.Outcome]) Option {
	return func(m *Manager) { m.cache = c }
}

// WithMetrics records page and run counters.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithWebhook notifies cfg.URL when a run finishes.
func WithWebhook(cfg config.WebhookConfig) Option {
	return func(m *Manager) { m.hook = cfg }
}

// WithTTL sets how long finished jobs stay queryable.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// NewManager creates a Manager and starts its expiry loop. Call Close to
// cancel running jobs and stop the loop.
func NewManager(runner Runner, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		runner: runner,
		ttl:    time.Hour,
		jobs:   make(map[string]*job),
		active: make(map[string]string),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.wg.Add(1)
	go m.expireLoop()
	return m
}

// Start launches prof in the background. With maxAgeMs > 0 and a cached
// outcome younger than that, the returned job is already completed and no
// browser is opened.
func (m *Manager) Start(prof profile.Profile, maxAgeMs int) (Job, error) {
	key := cache.Key(prof.Name, prof.URL)

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, busy := m.active[prof.Name]; busy {
		return Job{}, models.NewScrapeError(
			models.ErrCodeJobConflict,
			fmt.Sprintf("profile %q is already running as %s", prof.Name, id),
			nil,
		)
	}

	now := time.Now()
	j := &job{
		Job: Job{
			ID:        "run-" + randomID(),
			Profile:   prof.Name,
			Status:    StatusRunning,
			CreatedAt: now,
		},
		cacheKey: key,
		done:     make(chan struct{}),
		subs:     make(map[chan scraper.Event]struct{}),
	}
	m.jobs[j.ID] = j

	if m.cache != nil {
		if out, ok := m.cache.Get(key, maxAgeMs); ok {
			j.Status = StatusCompleted
			j.Cached = true
			j.Outcome = out
			j.State = out.State
			j.Records = len(out.Records)
			j.FinishedAt = now
			close(j.done)
			if m.metrics != nil {
				m.metrics.ObserveRun(prof.Name, metrics.OutcomeCached, 0)
			}
			slog.Info("run served from cache", "job_id", j.ID, "profile", prof.Name)
			return j.Job, nil
		}
	}

	m.active[prof.Name] = j.ID

	events := make(chan scraper.Event, 16)
	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		defer close(events)
		m.runner.Execute(m.ctx, prof, events)
	}()
	go func() {
		defer m.wg.Done()
		m.consume(j, events)
	}()

	slog.Info("run started", "job_id", j.ID, "profile", prof.Name)
	return j.Job, nil
}

// consume applies the worker's events until the channel closes.
func (m *Manager) consume(j *job, events <-chan scraper.Event) {
	for ev := range events {
		m.apply(j, ev)
	}
	m.finish(j)
}

func (m *Manager) apply(j *job, ev scraper.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Type {
	case scraper.EventPage:
		j.State = ev.State
		j.Records = ev.State.Records
		if m.metrics != nil {
			m.metrics.ObservePage(j.Profile, ev.Added)
		}
	case scraper.EventStage:
		j.Stage = ev.Stage
	case scraper.EventDone:
		j.Status = StatusCompleted
		j.Outcome = ev.Outcome
		j.State = ev.State
		if ev.Outcome != nil {
			j.Records = len(ev.Outcome.Records)
		}
	case scraper.EventFailed:
		j.Status = StatusFailed
		j.Error = models.AsScrapeError(ev.Err).ToDetail()
	}

	for sub := range j.subs {
		select {
		case sub <- ev:
		default:
			slog.Debug("subscriber lagging, event dropped", "job_id", j.ID, "event", ev.Type)
		}
	}
}

// finish runs once the worker has returned. The cache and metrics are
// updated before done is closed so waiters observe them.
func (m *Manager) finish(j *job) {
	m.mu.Lock()
	if j.Status == StatusRunning {
		// the worker exited without a terminal event
		j.Status = StatusFailed
		j.Error = &models.ErrorDetail{Code: models.ErrCodeInternal, Message: "run ended without a result"}
	}
	j.Stage = ""
	j.FinishedAt = time.Now()
	delete(m.active, j.Profile)
	snap := j.Job

	switch snap.Status {
	case StatusCompleted:
		slog.Info("run completed",
			"job_id", snap.ID,
			"profile", snap.Profile,
			"records", snap.Records,
			"pages", snap.State.Page,
			"stop", snap.State.Stop,
		)
		if m.cache != nil && snap.Outcome != nil {
			m.cache.Set(j.cacheKey, snap.Outcome)
		}
		if m.metrics != nil {
			var secs float64
			if snap.Outcome != nil {
				secs = snap.Outcome.Duration().Seconds()
			}
			m.metrics.ObserveRun(snap.Profile, metrics.OutcomeCompleted, secs)
		}
	default:
		slog.Error("run failed", "job_id", snap.ID, "profile", snap.Profile, "error", snap.Error.Message)
		if m.metrics != nil {
			m.metrics.ObserveRun(snap.Profile, metrics.OutcomeFailed, 0)
		}
	}

	for sub := range j.subs {
		close(sub)
		delete(j.subs, sub)
	}
	close(j.done)
	m.mu.Unlock()

	m.notify(snap)
}

// notify sends the completion webhook, if one is configured.
func (m *Manager) notify(snap Job) {
	if m.hook.URL == "" {
		return
	}
	ev := &webhook.Event{
		JobID:     snap.ID,
		Profile:   snap.Profile,
		Timestamp: snap.FinishedAt.Unix(),
	}
	if snap.Status == StatusCompleted {
		ev.Type = webhook.EventRunCompleted
		data := map[string]any{
			"records": snap.Records,
			"pages":   snap.State.Page,
			"stop":    snap.State.Stop,
		}
		if snap.Outcome != nil {
			data["file"] = snap.Outcome.File
		}
		ev.Data = data
	} else {
		ev.Type = webhook.EventRunFailed
		ev.Data = snap.Error
	}
	webhook.DeliverAsync(m.hook.URL, m.hook.Secret, ev, nil)
}

// Get returns a snapshot of the job.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, errNotFound(id)
	}
	return j.Job, nil
}

// Active returns the number of running jobs.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Wait blocks until the job finishes or ctx is done, and returns the
// latest snapshot either way.
func (m *Manager) Wait(ctx context.Context, id string) (Job, error) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return Job{}, errNotFound(id)
	}

	select {
	case <-j.done:
	case <-ctx.Done():
	}
	return m.Get(id)
}

// Subscribe streams the job's events. The channel is closed when the job
// finishes; it is closed immediately for a finished job. cancel releases
// the subscription early.
func (m *Manager) Subscribe(id string) (<-chan scraper.Event, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, nil, errNotFound(id)
	}
	ch := make(chan scraper.Event, subscriberBuffer)
	if j.Finished() {
		close(ch)
		return ch, func() {}, nil
	}
	j.subs[ch] = struct{}{}

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := j.subs[ch]; ok {
			delete(j.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

// Close cancels running jobs and waits for their goroutines to exit.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) expireLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			m.expire(now)
		}
	}
}

// expire drops finished jobs older than the TTL.
func (m *Manager) expire(now time.Time) {
	cutoff := now.Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, j := range m.jobs {
		if j.Finished() && j.FinishedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}

func errNotFound(id string) error {
	return models.NewScrapeError(models.ErrCodeJobNotFound, fmt.Sprintf("run %q not found", id), nil)
}

// randomID generates a random 16-character hex ID.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
