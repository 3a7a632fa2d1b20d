package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tender-barbarian/chronos/cache"
	"github.com/tender-barbarian/chronos/dispatch"
	"github.com/tender-barbarian/chronos/repository"
	"github.com/tender-barbarian/chronos/repository/models"
)

// Matcher finds every enabled job whose five wildcard schedule fields match
// a tick's civil time in each of its user's time zone, once per tick.
type Matcher struct {
	authStore   *repository.AuthStore
	locations   *cache.Cache[*time.Location]
	logger      *slog.Logger
	httpTimeout time.Duration
}

func NewMatcher(authStore *repository.AuthStore, locations *cache.Cache[*time.Location], logger *slog.Logger, httpTimeout time.Duration) *Matcher {
	return &Matcher{authStore: authStore, locations: locations, logger: logger, httpTimeout: httpTimeout}
}

// Match builds the dispatch.Batch for one tick: forTime is the
// jitter-corrected instant used to compute each zone's civil time,
// plannedTime is the minute-aligned instant recorded as every matched
// request's DatePlanned.
func (m *Matcher) Match(ctx context.Context, forTime, plannedTime time.Time) (*dispatch.Batch, error) {
	plannedUTC := plannedTime.UTC()
	batch := dispatch.NewBatch(plannedUTC.Year(), int(plannedUTC.Month()), plannedUTC.Day(), plannedUTC.Hour(), plannedUTC.Minute())

	zones, err := m.authStore.ListTimezones(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing timezones: %w", err)
	}

	for _, tz := range zones {
		if err := m.matchZone(ctx, tz, forTime, plannedTime, batch); err != nil {
			return nil, fmt.Errorf("matching jobs for timezone %s: %w", tz, err)
		}
	}
	return batch, nil
}

func (m *Matcher) matchZone(ctx context.Context, tz string, forTime, plannedTime time.Time, batch *dispatch.Batch) error {
	loc, err := m.locations.GetOrLoad(tz, func() (*time.Location, error) {
		return time.LoadLocation(tz)
	})
	if err != nil {
		m.logger.Warn("failed to load time zone, skipping", "timezone", tz, "error", err)
		return nil
	}

	local := forTime.In(loc)
	civil := repository.CivilTime{
		Year:    local.Year(),
		Month:   int(local.Month()),
		Day:     local.Day(),
		Hour:    local.Hour(),
		Minute:  local.Minute(),
		Weekday: int(local.Weekday()),
	}

	jobs, err := m.authStore.MatchJobs(ctx, tz, civil)
	if err != nil {
		return fmt.Errorf("querying matched jobs: %w", err)
	}

	m.logger.Info("matched jobs for timezone", "timezone", tz, "count", len(jobs))

	for _, job := range jobs {
		req, err := m.buildRequest(ctx, job, plannedTime)
		if err != nil {
			return fmt.Errorf("building request for job %d: %w", job.ID, err)
		}
		batch.AddRequest(req)
	}
	return nil
}

func (m *Matcher) buildRequest(ctx context.Context, job models.MatchedJob, plannedTime time.Time) (*dispatch.Request, error) {
	var headers []models.JobHeader
	if job.HeaderCount > 0 {
		var err error
		headers, err = m.authStore.JobHeaders(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching headers: %w", err)
		}
	}

	body, _, err := m.authStore.JobBody(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching body: %w", err)
	}

	url := strings.TrimSpace(job.URL)

	return &dispatch.Request{
		JobID:    job.ID,
		URL:      url,
		Method:   job.RequestMethod,
		UseAuth:  job.AuthEnable,
		AuthUser: job.AuthUser,
		AuthPass: job.AuthPass,
		Headers:  headers,
		Body:     body,
		Timeout:  m.httpTimeout,
		Result: &dispatch.ResultSlot{
			JobID:          job.ID,
			UserID:         job.UserID,
			URL:            url,
			DatePlanned:    plannedTime.UnixMilli(),
			NotifyFailure:  job.NotifyFailure,
			NotifySuccess:  job.NotifySuccess,
			NotifyDisable:  job.NotifyDisable,
			OldFailCounter: job.FailCounter,
			SaveResponses:  job.SaveResponses,
		},
	}, nil
}
