package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tender-barbarian/chronos/repository/models"
)

// ResultSink receives each completed JobResult as soon as it's produced,
// decoupling the pool from the ingest pipeline's queueing policy.
type ResultSink interface {
	AddResult(*models.JobResult)
}

// Batch is the set of requests matched for one tick, tagged with the
// planned minute they belong to for logging.
type Batch struct {
	Year, Month, Day, Hour, Minute int

	mu       sync.Mutex
	requests []*Request
}

func NewBatch(year, month, day, hour, minute int) *Batch {
	return &Batch{Year: year, Month: month, Day: day, Hour: hour, Minute: minute}
}

func (b *Batch) AddRequest(r *Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r)
}

func (b *Batch) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests) == 0
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Pool runs a Batch's requests with bounded concurrency, handing each
// completed result to a ResultSink as soon as it's ready. One Pool is
// created per tick and discarded after Run returns — see SPEC_FULL.md §5's
// per-tick pool lifecycle.
type Pool struct {
	handler     Handler
	concurrency int
}

func NewPool(client *Client, concurrency int, logger *slog.Logger) *Pool {
	p := &Pool{concurrency: concurrency}
	p.handler = Chain(func(ctx context.Context, req *Request) *models.JobResult {
		return client.Execute(ctx, req)
	}, Recover(logger), Logging(logger))
	return p
}

// Run executes every request in batch and hands each result to sink. It
// returns once every request has produced a result; a request's own
// execution failure never aborts the batch, since every HTTP outcome
// (including a connection failure) is itself a valid result.
func (p *Pool) Run(ctx context.Context, batch *Batch, sink ResultSink) error {
	if batch.Empty() {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for _, req := range batch.requests {
		req := req
		g.Go(func() error {
			sink.AddResult(p.handler(ctx, req))
			return nil
		})
	}

	return g.Wait()
}
