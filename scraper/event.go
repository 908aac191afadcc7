package scraper

import (
	"context"
	"time"

	"github.com/use-agent/tablescout/models"
)

// EventType names a progress message.
type EventType string

const (
	EventPage   EventType = "page"   // a page was extracted
	EventStage  EventType = "stage"  // the pipeline moved to a new step
	EventDone   EventType = "done"   // Outcome is set
	EventFailed EventType = "failed" // Err is set
)

// Pipeline stages reported with EventStage.
const (
	StageScraping    = "scraping"
	StageWriting     = "writing"
	StageIndexing    = "indexing"
	StageReporting   = "reporting"
	StageSummarizing = "summarizing"
	StageMailing     = "mailing"
)

// Event is a message from a run's worker goroutine to whoever owns the
// run's state. Workers only send; they never touch that state directly.
type Event struct {
	Type    EventType              `json:"type"`
	Profile string                 `json:"profile"`
	At      time.Time              `json:"at"`
	State   models.PaginationState `json:"state"`
	Added   int                    `json:"added,omitempty"`
	Stage   string                 `json:"stage,omitempty"`
	Outcome *Outcome               `json:"outcome,omitempty"`
	Err     error                  `json:"-"`
}

// emit sends a progress event unless events is nil or ctx is done.
func emit(ctx context.Context, events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// emitFinal sends a terminal event. It ignores ctx so the consumer always
// learns how the run ended.
func emitFinal(events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	ev.At = time.Now()
	events <- ev
}
