package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tender-barbarian/chronos/pathutil"
	"github.com/tender-barbarian/chronos/repository"
	"github.com/tender-barbarian/chronos/repository/joblogstore"
	"github.com/tender-barbarian/chronos/repository/models"
)

// Ingest is the single long-lived consumer of dispatched job results. A
// worker pool's goroutines call AddResult concurrently; Run drains the
// queue from one goroutine at a time, so every per-user SQLite write and
// every authoritative-store update happens serialized, matching the
// original daemon's single update thread.
//
// The queue is a plain slice guarded by a mutex and woken via a
// sync.Cond, not a buffered channel: Run swaps the whole slice out under
// the lock in one O(1) step and processes the swapped-out batch without
// holding the lock, exactly reproducing the original's queue.swap(tempQueue)
// protocol rather than draining a channel item by item.
type Ingest struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []*models.JobResult
	stop  bool

	authStore   *repository.AuthStore
	jobLogStore *joblogstore.Store
	logger      *slog.Logger
	maxFailures int
}

func NewIngest(authStore *repository.AuthStore, jobLogStore *joblogstore.Store, logger *slog.Logger, maxFailures int) *Ingest {
	i := &Ingest{
		authStore:   authStore,
		jobLogStore: jobLogStore,
		logger:      logger,
		maxFailures: maxFailures,
	}
	i.cond = sync.NewCond(&i.mu)
	return i
}

// AddResult enqueues a result and wakes Run if it's waiting. Implements
// dispatch.ResultSink.
func (i *Ingest) AddResult(result *models.JobResult) {
	i.mu.Lock()
	i.queue = append(i.queue, result)
	i.mu.Unlock()
	i.cond.Signal()
}

// QueueLen reports how many results are currently queued, waiting for Run to
// drain them. Exposed for the admin status endpoint only.
func (i *Ingest) QueueLen() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.queue)
}

// Stop requests that Run exit once it has drained whatever's currently
// queued. Called once at shutdown, after the tick loop has stopped
// producing new results.
func (i *Ingest) Stop() {
	i.mu.Lock()
	i.stop = true
	i.mu.Unlock()
	i.cond.Signal()
}

// Run drains the queue until Stop is called and the queue is empty. It
// must be started exactly once, before the first tick, and joined at
// shutdown.
//
// ctx is accepted for symmetry with Ticker.Run but is never threaded into
// a store write: the caller cancels ctx on SIGINT/SIGTERM before calling
// Stop, and a cancelled context would fail every write in the final
// post-Stop drain, silently dropping the last minute's results instead of
// committing them. storeResult persists with context.Background() so that
// drain still completes; only the idle wait for new work is left
// cancellable by the stop flag Stop sets.
func (i *Ingest) Run(ctx context.Context) {
	for {
		i.mu.Lock()
		for len(i.queue) == 0 && !i.stop {
			i.cond.Wait()
		}
		if len(i.queue) == 0 && i.stop {
			i.mu.Unlock()
			return
		}
		batch := i.queue
		i.queue = nil
		i.mu.Unlock()

		if len(batch) > 100 {
			i.logger.Info("ingesting results", "count", len(batch))
		}

		start := time.Now()
		for _, result := range batch {
			i.storeResult(context.Background(), result)
		}

		if len(batch) > 100 {
			i.logger.Info("finished ingesting results", "count", len(batch), "elapsed", time.Since(start))
		}
	}
}

func (i *Ingest) storeResult(ctx context.Context, result *models.JobResult) {
	dir := i.jobLogStore.UserDir(result.UserID)
	if err := pathutil.EnsureDir(dir); err != nil {
		i.logger.Error("creating user log dir", "user_id", result.UserID, "dir", dir, "error", err)
		return
	}

	joblogID, err := i.jobLogStore.Insert(ctx, dir, result)
	if err != nil {
		i.logger.Error("writing job log", "job_id", result.JobID, "error", err)
		return
	}

	if err := i.applyPolicy(ctx, result, joblogID); err != nil {
		i.logger.Error("applying result policy", "job_id", result.JobID, "error", err)
	}
}

// applyPolicy updates the job's authoritative metadata and decides on at
// most one notification, in this exact order: DISABLE preempts FAILURE
// preempts SUCCESS. failCounter is forced to 0 as soon as the job is
// disabled, before the FAILURE/SUCCESS predicates are evaluated, so a
// result that both crosses max_failures and would otherwise read as the
// job's first-ever failure never raises both rows — see DESIGN.md for why
// this differs from the original C++, which doesn't reset its local
// variable and can (rarely) raise both.
func (i *Ingest) applyPolicy(ctx context.Context, result *models.JobResult, joblogID int64) error {
	failCounter, err := i.authStore.ApplyResult(ctx, result)
	if err != nil {
		return fmt.Errorf("updating job metadata: %w", err)
	}

	var notify bool
	var notifyType models.NotificationType

	if failCounter > i.maxFailures {
		if err := i.authStore.DisableJob(ctx, result.JobID); err != nil {
			return fmt.Errorf("disabling job: %w", err)
		}
		failCounter = 0

		if result.NotifyDisable {
			notify = true
			notifyType = models.NotificationDisable
		}
	}

	if !notify && result.NotifyFailure && result.Status != models.StatusOK && failCounter == 1 {
		notify = true
		notifyType = models.NotificationFailure
	}

	if !notify && result.NotifySuccess && result.Status == models.StatusOK && result.OldFailCounter > 0 && failCounter == 0 {
		notify = true
		notifyType = models.NotificationSuccess
	}

	if !notify {
		return nil
	}

	n := models.Notification{
		JobID:    result.JobID,
		JobLogID: joblogID,
		Date:     time.Now().Unix(),
		Type:     notifyType,
	}
	if err := i.authStore.InsertNotification(ctx, n); err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}
