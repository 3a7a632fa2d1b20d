// Package dispatch implements the bounded-concurrency HTTP worker pool that
// executes one tick's matched jobs, plus the per-request descriptor and
// result scaffolding it operates on.
package dispatch

import (
	"time"

	"github.com/tender-barbarian/chronos/repository/models"
)

// ResultSlot carries everything about a matched job that Client.Execute
// doesn't itself produce, but the resulting JobResult still needs —
// metadata the matcher already has in hand and that would otherwise have to
// be re-fetched from the authoritative store during ingest.
type ResultSlot struct {
	JobID          int
	UserID         int
	URL            string
	DatePlanned    int64
	NotifyFailure  bool
	NotifySuccess  bool
	NotifyDisable  bool
	OldFailCounter int
	SaveResponses  bool
}

// Request is one job's HTTP execution descriptor, built by the matcher and
// consumed by a Pool worker.
type Request struct {
	JobID    int
	URL      string
	Method   models.RequestMethod
	UseAuth  bool
	AuthUser string
	AuthPass string
	Headers  []models.JobHeader
	Body     string
	Timeout  time.Duration
	Result   *ResultSlot
}

// NewResult seeds a JobResult from the request's ResultSlot, leaving the
// execution-outcome fields (status, duration, ...) for Client.Execute to
// fill in.
func (r *Request) NewResult() *models.JobResult {
	return &models.JobResult{
		JobID:          r.Result.JobID,
		UserID:         r.Result.UserID,
		URL:            r.Result.URL,
		DatePlanned:    r.Result.DatePlanned,
		NotifyFailure:  r.Result.NotifyFailure,
		NotifySuccess:  r.Result.NotifySuccess,
		NotifyDisable:  r.Result.NotifyDisable,
		OldFailCounter: r.Result.OldFailCounter,
		SaveResponses:  r.Result.SaveResponses,
	}
}
