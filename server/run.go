// Package server wires the daemon's dependencies together and owns its
// process lifecycle: startup, the admin HTTP surface, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tender-barbarian/chronos/config"
	"github.com/tender-barbarian/chronos/repository"
	"github.com/tender-barbarian/chronos/repository/joblogstore"
	"github.com/tender-barbarian/chronos/server/handlers"
	"github.com/tender-barbarian/chronos/server/middleware"
	"github.com/tender-barbarian/chronos/server/routes"
	"github.com/tender-barbarian/chronos/service"
)

// statusSource combines the tick loop and the ingest pipeline into the
// single view handlers.Status needs.
type statusSource struct {
	ticker *service.Ticker
	ingest *service.Ingest
}

func (s statusSource) LastTick() time.Time { return s.ticker.LastTick() }
func (s statusSource) QueueLen() int       { return s.ingest.QueueLen() }

// Run opens the authoritative store, bootstraps the per-user log store and
// the tick/ingest pipeline, serves the admin HTTP surface, and blocks until
// ctx's signal fires, then shuts everything down in reverse order.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	db, err := repository.Open(cfg.MySQLDSN())
	if err != nil {
		return fmt.Errorf("opening authoritative store: %w", err)
	}
	defer db.Close() // nolint

	if err := repository.Bootstrap(db, cfg.MigrationsPath); err != nil {
		return fmt.Errorf("bootstrapping authoritative store: %w", err)
	}

	authStore := repository.NewAuthStore(db)
	jobLogStore := joblogstore.New(cfg.UserDBFilePathScheme, cfg.UserDBFileNameScheme)
	defer jobLogStore.Close() // nolint

	svc := service.New(service.Config{
		AuthStore:         authStore,
		JobLogStore:       jobLogStore,
		Logger:            logger,
		MaxFailures:       cfg.MaxFailures,
		WorkerConcurrency: cfg.WorkerConcurrency,
		HTTPTimeout:       cfg.HTTPTimeout(),
		Jitter:            service.ConstantJitter(1),
	})

	ingest := svc.Ingest()
	ticker := svc.NewTicker()

	var ingestWG sync.WaitGroup
	ingestWG.Add(1)
	go func() {
		defer ingestWG.Done()
		ingest.Run(ctx)
	}()
	var tickerWG sync.WaitGroup
	tickerWG.Add(1)
	go func() {
		defer tickerWG.Done()
		ticker.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux = routes.Register(mux, statusSource{ticker: ticker, ingest: ingest}, handlers.NewErrorHandler(logger))

	var handler http.Handler = mux
	handler = middleware.NewLoggingMiddleware(handler, logger)
	handler = middleware.NewRecoverMiddleware(handler, logger)

	httpServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: handler,
	}

	go func() {
		log.Printf("admin http surface listening on %s\n", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "admin http surface: %s\n", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutting down admin http surface: %s\n", err)
		}

		tickerWG.Wait()
		ingest.Stop()
		ingestWG.Wait()
	}()

	wg.Wait()
	return nil
}
