package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/tender-barbarian/chronos/repository/models"
)

// Handler executes one request and returns its result.
type Handler func(ctx context.Context, req *Request) *models.JobResult

// Middleware wraps a Handler, mirroring the server package's
// http.Handler-wrapping middleware shape one level down, around per-request
// execution instead of per-HTTP-request handling.
type Middleware func(next Handler) Handler

// Logging logs the start and outcome of every dispatched request.
func Logging(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) *models.JobResult {
			start := time.Now()
			result := next(ctx, req)
			logger.Info("dispatched job",
				"job_id", req.JobID, "url", req.URL,
				"status", result.Status, "elapsed", time.Since(start))
			return result
		}
	}
}

// Recover turns a panicking handler into a FAILED_OTHER result instead of
// taking down the worker pool.
func Recover(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (result *models.JobResult) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("job handler panicked",
						"job_id", req.JobID, "panic", r, "stack", string(debug.Stack()))
					result = req.NewResult()
					result.Status = models.StatusFailedOther
					result.StatusText = fmt.Sprintf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// Chain applies mws around h, outermost first.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
