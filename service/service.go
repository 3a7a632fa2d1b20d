// Package service implements the execution daemon's three roles: the tick
// loop (Ticker), the per-minute job matcher (Matcher), and the background
// result ingest pipeline (Ingest), wired together by Service.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tender-barbarian/chronos/cache"
	"github.com/tender-barbarian/chronos/dispatch"
	"github.com/tender-barbarian/chronos/repository"
	"github.com/tender-barbarian/chronos/repository/joblogstore"
)

// Config wires a Service's dependencies. Construction is explicit and
// flat — there is no process-wide singleton to reach back into, unlike the
// original daemon's App::getInstance()/UpdateThread::getInstance().
type Config struct {
	AuthStore         *repository.AuthStore
	JobLogStore       *joblogstore.Store
	Locations         *cache.Cache[*time.Location]
	Logger            *slog.Logger
	MaxFailures       int
	WorkerConcurrency int
	HTTPTimeout       time.Duration
	Jitter            JitterFunc
}

// Service ties the matcher, dispatch pool, and ingest pipeline together
// into one tick's worth of work.
type Service struct {
	matcher *Matcher
	ingest  *Ingest
	client  *dispatch.Client
	logger  *slog.Logger

	workerConcurrency int
	jitter            JitterFunc
}

func New(cfg Config) *Service {
	locations := cfg.Locations
	if locations == nil {
		locations = cache.NewCache[*time.Location]()
	}

	return &Service{
		matcher:           NewMatcher(cfg.AuthStore, locations, cfg.Logger, cfg.HTTPTimeout),
		ingest:            NewIngest(cfg.AuthStore, cfg.JobLogStore, cfg.Logger, cfg.MaxFailures),
		client:            dispatch.NewClient(),
		logger:            cfg.Logger,
		workerConcurrency: cfg.WorkerConcurrency,
		jitter:            cfg.Jitter,
	}
}

// Ingest returns the service's ingest pipeline, so the caller can start its
// Run loop and call Stop at shutdown.
func (s *Service) Ingest() *Ingest { return s.ingest }

// NewTicker builds this service's tick loop, calling ProcessTick on every
// detected minute edge.
func (s *Service) NewTicker() *Ticker {
	return NewTicker(s.jitter, s.ProcessTick)
}

// ProcessTick matches every due job for forTime/plannedTime and runs them
// through a freshly created worker pool, handing each result to the ingest
// pipeline as it completes. Errors from matching abort the tick entirely
// (a StoreError per SPEC_FULL.md §7); a pool run itself never returns an
// error, since every HTTP outcome becomes a logged result, not a failure.
func (s *Service) ProcessTick(ctx context.Context, forTime, plannedTime time.Time) {
	batch, err := s.matcher.Match(ctx, forTime, plannedTime)
	if err != nil {
		s.logger.Error("matching jobs", "error", fmt.Errorf("matching jobs for tick: %w", err))
		return
	}

	if batch.Empty() {
		return
	}

	s.logger.Info("processing tick", "jobs", batch.Len(), "planned", plannedTime)

	// In-flight requests are not cancelled with ctx at shutdown: each is
	// bounded by its own timeout and allowed to finish.
	pool := dispatch.NewPool(s.client, s.workerConcurrency, s.logger)
	if err := pool.Run(context.WithoutCancel(ctx), batch, s.ingest); err != nil {
		s.logger.Error("running worker pool", "error", err)
	}
}
