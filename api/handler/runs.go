package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tablescout/jobs"
	"github.com/use-agent/tablescout/llm"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
	"github.com/use-agent/tablescout/stats"
)

const defaultWaitTimeout = 300 * time.Second

// RunResponse is the response for POST /api/v1/runs and
// GET /api/v1/runs/:id. Records, stats and outputs are present once the
// run has completed.
type RunResponse struct {
	ID      string                 `json:"id"`
	Profile string                 `json:"profile"`
	Status  jobs.Status            `json:"status"`
	Stage   string                 `json:"stage,omitempty"`
	State   models.PaginationState `json:"state"`
	Cached  bool                   `json:"cached,omitempty"`

	Records    []map[string]any `json:"records,omitempty"`
	File       string           `json:"file,omitempty"`
	ReportFile string           `json:"report_file,omitempty"`

	Stats     []stats.ColumnStats `json:"stats,omitempty"`
	Changes   []stats.ChangeStats `json:"changes,omitempty"`
	Highlight *stats.ExtremeStats `json:"highlight,omitempty"`
	Summary   *llm.Summary        `json:"summary,omitempty"`

	Indexed      int    `json:"indexed,omitempty"`
	IndexError   string `json:"index_error,omitempty"`
	SummaryError string `json:"summary_error,omitempty"`
	MailError    string `json:"mail_error,omitempty"`

	Error      *models.ErrorDetail `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	FinishedAt time.Time           `json:"finished_at,omitzero"`
}

// PostRun returns a handler for POST /api/v1/runs.
func PostRun(reg *profile.Registry, mgr *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		prof, err := lookupProfile(reg, req.Profile)
		if err != nil {
			respondError(c, err)
			return
		}

		job, err := mgr.Start(prof, req.MaxAgeMs)
		if err != nil {
			respondError(c, err)
			return
		}

		if req.Wait && !job.Finished() {
			timeout := defaultWaitTimeout
			if req.WaitTimeout > 0 {
				timeout = time.Duration(req.WaitTimeout) * time.Second
			}
			ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
			defer cancel()
			if job, err = mgr.Wait(ctx, job.ID); err != nil {
				respondError(c, err)
				return
			}
		}

		status := http.StatusAccepted
		if job.Finished() {
			status = http.StatusOK
		}
		c.JSON(status, newRunResponse(reg, job))
	}
}

// GetRun returns a handler for GET /api/v1/runs/:id.
func GetRun(reg *profile.Registry, mgr *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := mgr.Get(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newRunResponse(reg, job))
	}
}

// StreamRun returns a handler for GET /api/v1/runs/:id/events. Progress is
// sent as server-sent events until the run finishes, followed by one
// "run" event carrying the final RunResponse.
func StreamRun(reg *profile.Registry, mgr *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		events, cancel, err := mgr.Subscribe(id)
		if err != nil {
			respondError(c, err)
			return
		}
		defer cancel()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					if job, err := mgr.Get(id); err == nil {
						c.SSEvent("run", newRunResponse(reg, job))
						c.Writer.Flush()
					}
					return
				}
				// the outcome is sent once, in the closing "run" event
				ev.Outcome = nil
				c.SSEvent(string(ev.Type), ev)
				c.Writer.Flush()
			case <-c.Request.Context().Done():
				return
			}
		}
	}
}

func newRunResponse(reg *profile.Registry, job jobs.Job) RunResponse {
	resp := RunResponse{
		ID:         job.ID,
		Profile:    job.Profile,
		Status:     job.Status,
		Stage:      job.Stage,
		State:      job.State,
		Cached:     job.Cached,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
	out := job.Outcome
	if out == nil {
		return resp
	}

	if prof, ok := reg.Get(job.Profile); ok {
		resp.Records = recordObjects(prof, out.Records)
	}
	resp.File = out.File
	resp.ReportFile = out.ReportFile
	resp.Stats = out.Stats
	resp.Changes = out.Changes
	resp.Highlight = out.Highlight
	resp.Summary = out.Summary
	resp.Indexed = out.Indexed
	resp.IndexError = out.IndexError
	resp.SummaryError = out.SummaryError
	resp.MailError = out.MailError
	return resp
}

// recordObjects renders records keyed by column name. Absent values are
// null.
func recordObjects(prof profile.Profile, records []models.Record) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, rec := range records {
		obj := make(map[string]any, len(prof.Columns))
		for j, col := range prof.Columns {
			if j < len(rec.Values) {
				obj[col.Name] = rec.Values[j].Interface()
			} else {
				obj[col.Name] = nil
			}
		}
		out[i] = obj
	}
	return out
}
