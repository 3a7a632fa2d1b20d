package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/tender-barbarian/chronos/repository"
	"github.com/tender-barbarian/chronos/repository/joblogstore"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authStore := repository.NewAuthStore(db)
	dir := t.TempDir()
	store := joblogstore.New(dir+"/%u", "joblog-%m-%d.db")
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := New(Config{
		AuthStore:         authStore,
		JobLogStore:       store,
		Logger:            logger,
		MaxFailures:       5,
		WorkerConcurrency: 4,
		HTTPTimeout:       time.Second,
		Jitter:            ConstantJitter(0),
	})
	return svc, mock
}

func TestService_ProcessTick_NoTimezonesIsNoOp(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT DISTINCT timezone").
		WillReturnRows(sqlmock.NewRows([]string{"timezone"}))

	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	svc.ProcessTick(context.Background(), now, now)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ProcessTick_MatchErrorDoesNotPanic(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT DISTINCT timezone").
		WillReturnError(context.DeadlineExceeded)

	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	require.NotPanics(t, func() {
		svc.ProcessTick(context.Background(), now, now)
	})
}

func TestService_NewTicker_UsesConfiguredJitter(t *testing.T) {
	svc, _ := newTestService(t)
	ticker := svc.NewTicker()
	require.NotNil(t, ticker)
	require.Equal(t, 0, ticker.jitter())
}

func TestService_Ingest_ReturnsSameInstance(t *testing.T) {
	svc, _ := newTestService(t)
	require.Same(t, svc.ingest, svc.Ingest())
}
